// Package targets exposes the venvx targets as Cobra commands.
package targets

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/venvx/internal/environment"
	"github.com/tyemirov/venvx/internal/execshell"
	"github.com/tyemirov/venvx/internal/provisioner"
	"github.com/tyemirov/venvx/internal/utils"
	flagutils "github.com/tyemirov/venvx/internal/utils/flags"
	rootutils "github.com/tyemirov/venvx/internal/utils/roots"
	"github.com/tyemirov/venvx/pkg/taskrunner"
)

const (
	defaultCommandUseConstant              = "default"
	defaultCommandAliasConstant            = "provision"
	defaultCommandShortDescriptionConstant = "Provision the environment unless it already exists"
	defaultCommandLongDescriptionConstant  = "default creates the isolated Python environment in the root directory and installs the dependency manifest. Nothing runs when the environment marker is already present."
	cleanCommandUseConstant                = "clean"
	cleanCommandShortDescriptionConstant   = "Remove the environment"
	cleanCommandLongDescriptionConstant    = "clean deletes every generated environment artifact. Running it on a clean tree succeeds without changes."
	testCommandUseConstant                 = "test"
	testCommandShortDescriptionConstant    = "Run the static-analysis checks"
	testCommandLongDescriptionConstant     = "test runs the configured checks in order and stops at the first failing check. Checks use the environment's executables when it is provisioned.\n\nThe default checks lint " + taskrunner.DefaultShellScriptName + " with shellcheck and " + taskrunner.DefaultPayloadScriptName + " with pyflakes and pycodestyle. A tree without " + taskrunner.DefaultShellScriptName + " fails the first check; replace environment.checks in the configuration to lint other files."
	statusCommandUseConstant               = "status"
	statusCommandShortDescriptionConstant  = "Describe the environment"
	statusCommandLongDescriptionConstant   = "status reports whether the environment is provisioned, which artifacts exist, the manifest entries, and the configured checks."
	statusFormatFlagNameConstant           = "format"
	statusFormatFlagUsageConstant          = "Output format for the status report."
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the target commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() Configuration
	FileSystem                   afero.Fs
	CommandRunner                execshell.CommandRunner
	RuntimeLocator               provisioner.RuntimeLocator
	VariablesProvider            func() map[string]string
	RunIdentifierGenerator       func() string
}

// BuildDefault constructs the default target command.
func (builder *CommandBuilder) BuildDefault() (*cobra.Command, error) {
	return &cobra.Command{
		Use:     defaultCommandUseConstant,
		Aliases: []string{defaultCommandAliasConstant},
		Short:   defaultCommandShortDescriptionConstant,
		Long:    defaultCommandLongDescriptionConstant,
		RunE:    builder.RunDefault,
	}, nil
}

// BuildClean constructs the clean target command.
func (builder *CommandBuilder) BuildClean() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   cleanCommandUseConstant,
		Short: cleanCommandShortDescriptionConstant,
		Long:  cleanCommandLongDescriptionConstant,
		RunE:  builder.runClean,
	}, nil
}

// BuildTest constructs the test target command.
func (builder *CommandBuilder) BuildTest() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   testCommandUseConstant,
		Short: testCommandShortDescriptionConstant,
		Long:  testCommandLongDescriptionConstant,
		RunE:  builder.runTest,
	}, nil
}

// BuildStatus constructs the status command.
func (builder *CommandBuilder) BuildStatus() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortDescriptionConstant,
		Long:  statusCommandLongDescriptionConstant,
		RunE:  builder.runStatus,
	}
	command.Flags().String(
		statusFormatFlagNameConstant,
		string(taskrunner.StatusFormatHuman),
		flagutils.FormatChoiceUsage(
			string(taskrunner.StatusFormatHuman),
			[]string{string(taskrunner.StatusFormatHuman), string(taskrunner.StatusFormatYAML)},
			statusFormatFlagUsageConstant,
		),
	)
	return command, nil
}

// RunDefault executes the default target for command.
func (builder *CommandBuilder) RunDefault(command *cobra.Command, arguments []string) error {
	runner, runnerError := builder.buildRunner(command, arguments)
	if runnerError != nil {
		return runnerError
	}
	_, defaultError := runner.Default(command.Context())
	return defaultError
}

func (builder *CommandBuilder) runClean(command *cobra.Command, arguments []string) error {
	runner, runnerError := builder.buildRunner(command, arguments)
	if runnerError != nil {
		return runnerError
	}
	_, cleanError := runner.Clean(command.Context())
	return cleanError
}

func (builder *CommandBuilder) runTest(command *cobra.Command, arguments []string) error {
	runner, runnerError := builder.buildRunner(command, arguments)
	if runnerError != nil {
		return runnerError
	}
	_, testError := runner.Test(command.Context())
	return testError
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	formatValue, _, formatFlagError := flagutils.StringFlag(command, statusFormatFlagNameConstant)
	if formatFlagError != nil {
		return formatFlagError
	}
	statusFormat, formatError := taskrunner.ParseStatusFormat(formatValue)
	if formatError != nil {
		return formatError
	}

	runner, runnerError := builder.buildRunner(command, arguments)
	if runnerError != nil {
		return runnerError
	}
	report, statusError := runner.Status(command.Context())
	if statusError != nil {
		return statusError
	}
	return taskrunner.RenderStatus(command.OutOrStdout(), report, statusFormat)
}

func (builder *CommandBuilder) buildRunner(command *cobra.Command, arguments []string) (*taskrunner.Runner, error) {
	configuration := builder.resolveConfiguration()

	configuredRoot := configuration.Root
	if len(configuredRoot) == 0 {
		if contextRoot, rootAvailable := utils.NewCommandContextAccessor().EnvironmentRoot(command.Context()); rootAvailable {
			configuredRoot = contextRoot
		}
	}
	root, rootError := rootutils.Resolve(command, arguments, configuredRoot)
	if rootError != nil {
		return nil, rootError
	}

	manifestPath := configuration.Manifest
	if manifestFlagValue, manifestFlagChanged, manifestFlagError := flagutils.StringFlag(command, flagutils.ManifestFlagName); manifestFlagError == nil && manifestFlagChanged {
		manifestPath = manifestFlagValue
	}

	fileSystem := builder.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	inspector, inspectorError := environment.NewInspector(fileSystem, environment.Layout{
		Root:          root,
		MarkerName:    configuration.Marker,
		ArtifactNames: configuration.Artifacts,
	})
	if inspectorError != nil {
		return nil, inspectorError
	}

	logger := builder.resolveLogger()
	humanReadable := builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider()

	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner, humanReadable)
	if executorError != nil {
		return nil, executorError
	}

	baseVariables := environment.ProcessVariables()
	if builder.VariablesProvider != nil {
		baseVariables = builder.VariablesProvider()
	}

	runtimeLocator := builder.RuntimeLocator
	if runtimeLocator == nil {
		runtimeLocator = provisioner.SearchPathLocator{Variables: baseVariables}
	}

	provisioningService, provisionerError := provisioner.NewService(provisioner.ServiceDependencies{
		FileSystem: fileSystem,
		Executor:   shellExecutor,
		Locator:    runtimeLocator,
		Logger:     logger,
	})
	if provisionerError != nil {
		return nil, provisionerError
	}

	return taskrunner.NewRunner(taskrunner.Dependencies{
		FileSystem:             fileSystem,
		Inspector:              inspector,
		Provisioner:            provisioningService,
		Executor:               shellExecutor,
		Logger:                 logger,
		HumanReadableLogging:   humanReadable,
		Output:                 command.OutOrStdout(),
		Errors:                 command.ErrOrStderr(),
		RunIdentifierGenerator: builder.RunIdentifierGenerator,
	}, taskrunner.Settings{
		RuntimeName:           configuration.Runtime,
		ManifestPath:          manifestPath,
		UpgradeInstaller:      configuration.UpgradeInstaller,
		VariablesFile:         configuration.Dotenv,
		VariablesFileRequired: configuration.DotenvRequired,
		BaseVariables:         baseVariables,
		Checks:                configuration.Checks,
		DisableSummary:        configuration.DisableSummary,
	})
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}
