package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tyemirov/venvx/cmd/cli/targets"
	"github.com/tyemirov/venvx/internal/environment"
	"github.com/tyemirov/venvx/internal/execshell"
	flagutils "github.com/tyemirov/venvx/internal/utils/flags"
	"github.com/tyemirov/venvx/pkg/taskrunner"
)

const (
	testEnvironmentRootConstant = "/srv/compare-aspaths"
	testRunIdentifierConstant   = "run-internal"
)

type recordingCommandRunner struct {
	fileSystem afero.Fs
	commands   []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	arguments := command.Details.Arguments
	if len(arguments) == 3 && arguments[0] == "-m" && arguments[1] == "venv" {
		layout := environment.DefaultLayout(arguments[2])
		if writeError := afero.WriteFile(runner.fileSystem, layout.MarkerPath(), []byte("home = /usr/bin\n"), 0o644); writeError != nil {
			return execshell.ExecutionResult{}, writeError
		}
	}
	return execshell.ExecutionResult{}, nil
}

type staticRuntimeLocator struct{}

func (staticRuntimeLocator) Locate(string) (string, error) {
	return "/usr/bin/python3", nil
}

type failingSyncWriter struct {
	syncError error
}

func (writer failingSyncWriter) Write(payload []byte) (int, error) {
	return len(payload), nil
}

func (writer failingSyncWriter) Sync() error {
	return writer.syncError
}

func newTestApplication(t *testing.T) (*Application, *recordingCommandRunner, afero.Fs) {
	t.Helper()
	t.Setenv(configurationSearchPathEnvironmentVariableConstant, t.TempDir())

	fileSystem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fileSystem, filepath.Join(testEnvironmentRootConstant, "requirements.txt"), []byte("pyflakes\n"), 0o644))

	runner := &recordingCommandRunner{fileSystem: fileSystem}
	application := newApplication(targets.CommandBuilder{
		FileSystem:             fileSystem,
		CommandRunner:          runner,
		RuntimeLocator:         staticRuntimeLocator{},
		VariablesProvider:      func() map[string]string { return map[string]string{"PATH": "/usr/bin"} },
		RunIdentifierGenerator: func() string { return testRunIdentifierConstant },
	})
	application.rootCommand.SetOut(&bytes.Buffer{})
	application.rootCommand.SetErr(&bytes.Buffer{})
	return application, runner, fileSystem
}

func TestNormalizeInitializationScopeArguments(t *testing.T) {
	testCases := []struct {
		name         string
		input        []string
		expectedArgs []string
	}{
		{
			name:         "NoArguments",
			input:        nil,
			expectedArgs: nil,
		},
		{
			name:         "ImplicitLocalValue",
			input:        []string{"--init"},
			expectedArgs: []string{"--init=local"},
		},
		{
			name:         "ImplicitLocalWithFollowingFlag",
			input:        []string{"--init", "--force"},
			expectedArgs: []string{"--init=local", "--force"},
		},
		{
			name:         "ImplicitLocalBeforeSubcommand",
			input:        []string{"--init", "status"},
			expectedArgs: []string{"--init=local", "status"},
		},
		{
			name:         "ExplicitLocalValue",
			input:        []string{"--init", "local"},
			expectedArgs: []string{"--init", "local"},
		},
		{
			name:         "ExplicitUserValue",
			input:        []string{"--init=user"},
			expectedArgs: []string{"--init=user"},
		},
		{
			name:         "EmptyAssignmentDefaultsToLocal",
			input:        []string{"--init="},
			expectedArgs: []string{"--init=local"},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			normalized := normalizeInitializationScopeArguments(testCase.input)
			require.Equal(t, testCase.expectedArgs, normalized)
		})
	}
}

func TestOperationConfigurationsIndexByCommandPath(t *testing.T) {
	operations, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Command: []string{" Test "}, Options: map[string]any{"disable_summary": true}},
		{Command: []string{"status", "report"}, Options: map[string]any{}},
		{Command: nil, Options: map[string]any{"ignored": true}},
	})
	require.NoError(t, buildError)

	options, lookupError := operations.Lookup("test")
	require.NoError(t, lookupError)
	require.Equal(t, map[string]any{"disable_summary": true}, options)

	_, nestedError := operations.Lookup("status/report")
	require.NoError(t, nestedError)

	_, missingError := operations.Lookup("clean")
	var missing MissingOperationConfigurationError
	require.ErrorAs(t, missingError, &missing)
	require.Equal(t, "clean", missing.OperationName)

	_, duplicateError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Command: []string{"clean"}},
		{Command: []string{"CLEAN"}},
	})
	var duplicate DuplicateOperationConfigurationError
	require.ErrorAs(t, duplicateError, &duplicate)
	require.Equal(t, "clean", duplicate.OperationName)
}

func TestOperationConfigurationsMergeDefaultsKeepsOverrides(t *testing.T) {
	configured, configuredError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Command: []string{"test"}, Options: map[string]any{"disable_summary": true}},
	})
	require.NoError(t, configuredError)

	defaults, defaultsError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Command: []string{"test"}, Options: map[string]any{"disable_summary": false}},
		{Command: []string{"default"}, Options: map[string]any{"upgrade_installer": true}},
	})
	require.NoError(t, defaultsError)

	merged := configured.MergeDefaults(defaults)

	testOptions, testLookupError := merged.Lookup("test")
	require.NoError(t, testLookupError)
	require.Equal(t, true, testOptions["disable_summary"])

	defaultOptions, defaultLookupError := merged.Lookup("default")
	require.NoError(t, defaultLookupError)
	require.Equal(t, true, defaultOptions["upgrade_installer"])
}

func TestTargetConfigurationAppliesOperationOverrides(t *testing.T) {
	operations, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{
			Command: []string{"test"},
			Options: map[string]any{
				"checks": []any{
					map[string]any{"name": "ruff", "command": "ruff", "arguments": []any{"check", "."}},
				},
			},
		},
		{
			Command: []string{"default"},
			Options: map[string]any{"upgrade_installer": "true"},
		},
	})
	require.NoError(t, buildError)

	application := &Application{
		logger: zap.NewNop(),
		configuration: ApplicationConfiguration{
			Environment: targets.Configuration{
				Runtime: "python3.12",
				Checks:  taskrunner.DefaultChecks(),
			},
		},
		operationConfigurations: operations,
	}

	testConfiguration := application.targetConfiguration(testOperationNameConstant)
	require.Equal(t, []taskrunner.CheckDefinition{{Name: "ruff", Command: "ruff", Arguments: []string{"check", "."}}}, testConfiguration.Checks)
	require.Equal(t, "python3.12", testConfiguration.Runtime)

	defaultConfiguration := application.targetConfiguration(defaultOperationNameConstant)
	require.True(t, defaultConfiguration.UpgradeInstaller)
	require.Equal(t, taskrunner.DefaultChecks(), defaultConfiguration.Checks)

	cleanConfiguration := application.targetConfiguration(cleanOperationNameConstant)
	require.False(t, cleanConfiguration.UpgradeInstaller)
	require.Equal(t, "requirements.txt", cleanConfiguration.Manifest)
	require.Len(t, application.configuration.Environment.Checks, len(taskrunner.DefaultChecks()))
}

func TestInitializeConfigurationLoadsEmbeddedDefaults(t *testing.T) {
	application, _, _ := newTestApplication(t)

	command := &cobra.Command{Use: "test-command"}
	command.SetContext(context.Background())
	flagutils.BindPathFlags(command, flagutils.PathFlagValues{}, flagutils.PathFlagDefinitions{
		Root: flagutils.PathFlagDefinition{Name: flagutils.RootFlagName, Usage: flagutils.RootFlagUsage, Enabled: true},
	})

	require.NoError(t, application.initializeConfiguration(command))

	configuration := application.targetConfiguration(testOperationNameConstant)
	require.Equal(t, "python3", configuration.Runtime)
	require.Equal(t, "requirements.txt", configuration.Manifest)
	require.Equal(t, environment.DefaultMarkerName, configuration.Marker)
	require.Equal(t, taskrunner.DefaultChecks(), configuration.Checks)
	require.True(t, application.humanReadableLoggingEnabled())

	logLevel, logLevelAvailable := application.commandContextAccessor.LogLevel(command.Context())
	require.True(t, logLevelAvailable)
	require.Equal(t, "error", logLevel)
}

func TestInitializeConfigurationPublishesConfiguredRoot(t *testing.T) {
	application, _, _ := newTestApplication(t)
	t.Setenv("VENVX_ENVIRONMENT_ROOT", testEnvironmentRootConstant)

	command := &cobra.Command{Use: "test-command"}
	command.SetContext(context.Background())

	require.NoError(t, application.initializeConfiguration(command))

	root, rootAvailable := application.commandContextAccessor.EnvironmentRoot(command.Context())
	require.True(t, rootAvailable)
	require.Equal(t, testEnvironmentRootConstant, root)
}

func TestApplicationCommandHierarchy(t *testing.T) {
	application := NewApplication()
	rootCommand := application.rootCommand

	for _, commandPath := range [][]string{{"default"}, {"provision"}, {"clean"}, {"test"}, {"status"}, {"version"}} {
		command, _, findError := rootCommand.Find(commandPath)
		require.NoError(t, findError)
		require.NotNil(t, command.Parent())
		require.Equal(t, applicationNameConstant, command.Parent().Name())
	}

	for _, flagName := range []string{configFileFlagNameConstant, logLevelFlagNameConstant, logFormatFlagNameConstant, flagutils.RootFlagName, flagutils.ManifestFlagName, versionFlagNameConstant} {
		require.NotNil(t, rootCommand.PersistentFlags().Lookup(flagName), flagName)
	}
}

func TestRootCommandRunsDefaultTarget(t *testing.T) {
	application, runner, fileSystem := newTestApplication(t)
	application.rootCommand.SetArgs([]string{"--root", testEnvironmentRootConstant})

	require.NoError(t, application.rootCommand.Execute())

	require.Len(t, runner.commands, 2)
	require.Equal(t, []string{"-m", "venv", testEnvironmentRootConstant}, runner.commands[0].Details.Arguments)
	require.Equal(t, []string{"-m", "pip", "install", "-r", filepath.Join(testEnvironmentRootConstant, "requirements.txt")}, runner.commands[1].Details.Arguments)

	markerExists, existsError := afero.Exists(fileSystem, environment.DefaultLayout(testEnvironmentRootConstant).MarkerPath())
	require.NoError(t, existsError)
	require.True(t, markerExists)

	application.rootCommand.SetArgs([]string{"--root", testEnvironmentRootConstant})
	require.NoError(t, application.rootCommand.Execute())
	require.Len(t, runner.commands, 2)
}

func TestRootCommandRejectsPositionalArguments(t *testing.T) {
	application, runner, _ := newTestApplication(t)
	application.rootCommand.SetArgs([]string{"--root", testEnvironmentRootConstant, "extra"})

	executionError := application.rootCommand.Execute()
	require.Error(t, executionError)
	require.Contains(t, executionError.Error(), "accept no positional arguments")
	require.Empty(t, runner.commands)
}

func TestVersionFlagPrintsVersionAndExits(t *testing.T) {
	application, runner, _ := newTestApplication(t)
	output := &bytes.Buffer{}
	application.rootCommand.SetOut(output)
	application.versionResolver = func(context.Context) string { return "v1.2.3" }

	exitCodes := []int{}
	application.exitFunction = func(code int) { exitCodes = append(exitCodes, code) }

	application.rootCommand.SetArgs([]string{"--version"})
	require.NoError(t, application.rootCommand.Execute())

	require.Equal(t, []int{0}, exitCodes)
	require.Equal(t, "venvx version: v1.2.3\n", output.String())
	require.Empty(t, runner.commands)
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	application, _, _ := newTestApplication(t)
	output := &bytes.Buffer{}
	application.rootCommand.SetOut(output)
	application.versionResolver = func(context.Context) string { return "v0.4.0-3-gabc1234" }

	application.rootCommand.SetArgs([]string{"version"})
	require.NoError(t, application.rootCommand.Execute())
	require.Equal(t, "venvx version: v0.4.0-3-gabc1234\n", output.String())
}

func TestSyncLoggerInstanceIgnoresUnsupportedDescriptors(t *testing.T) {
	unexpectedError := errors.New("disk full")
	testCases := []struct {
		name          string
		syncError     error
		expectedError error
	}{
		{name: "Success"},
		{name: "NotSupported", syncError: syscall.ENOTSUP},
		{name: "InvalidArgument", syncError: syscall.EINVAL},
		{name: "BadDescriptor", syncError: syscall.EBADF},
		{name: "NotTerminal", syncError: syscall.ENOTTY},
		{name: "Unexpected", syncError: unexpectedError, expectedError: unexpectedError},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(failingSyncWriter{syncError: testCase.syncError}),
				zapcore.InfoLevel,
			)
			application := &Application{}

			syncError := application.syncLoggerInstance(zap.New(core))
			if testCase.expectedError == nil {
				require.NoError(t, syncError)
				return
			}
			require.ErrorIs(t, syncError, testCase.expectedError)
		})
	}
}
