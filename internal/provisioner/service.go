// Package provisioner creates an isolated Python environment and installs the dependency manifest into it.
package provisioner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/venvx/internal/environment"
	"github.com/tyemirov/venvx/internal/execshell"
	"github.com/tyemirov/venvx/internal/manifest"
)

const (
	// DefaultRuntimeName is the interpreter used to create environments when none is configured.
	DefaultRuntimeName = "python3"

	environmentInterpreterNameConstant = "python"
	moduleFlagConstant                 = "-m"
	venvModuleConstant                 = "venv"
	installerModuleConstant            = "pip"
	installSubcommandConstant          = "install"
	requirementFlagConstant            = "-r"
	upgradeFlagConstant                = "--upgrade"

	runtimeLocatedMessageConstant        = "runtime located"
	manifestLoadedMessageConstant        = "manifest loaded"
	environmentCreatedMessageConstant    = "environment created"
	installerUpgradedMessageConstant     = "installer upgraded"
	dependenciesInstalledMessageConstant = "dependencies installed"
	runtimeFieldNameConstant             = "runtime"
	rootFieldNameConstant                = "root"
	manifestFieldNameConstant            = "manifest"
	packageCountFieldNameConstant        = "packages"
	optionCountFieldNameConstant         = "options"
	layoutValidationErrorTemplate        = "invalid environment layout: %w"
)

// CommandExecutor runs external commands on behalf of the provisioner.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// ServiceDependencies enumerates collaborators required by the provisioner.
type ServiceDependencies struct {
	FileSystem afero.Fs
	Executor   CommandExecutor
	Locator    RuntimeLocator
	Logger     *zap.Logger
}

// Options configure a provisioning run.
type Options struct {
	Layout           environment.Layout
	RuntimeName      string
	ManifestPath     string
	BaseVariables    map[string]string
	ExtraVariables   map[string]string
	UpgradeInstaller bool
	StandardOutput   io.Writer
	StandardError    io.Writer
}

// Result captures a provisioned environment.
type Result struct {
	Environment environment.Environment
	Manifest    manifest.Manifest
	RuntimePath string
}

// Service provisions environments. It never checks whether an environment already exists.
type Service struct {
	fileSystem afero.Fs
	executor   CommandExecutor
	locator    RuntimeLocator
	logger     *zap.Logger
}

// NewService constructs a Service from dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if dependencies.Locator == nil {
		return nil, ErrLocatorNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fileSystem: dependencies.FileSystem,
		executor:   dependencies.Executor,
		locator:    dependencies.Locator,
		logger:     logger,
	}, nil
}

// ManifestPath resolves the manifest location for layout, defaulting to the root's requirements file.
func ManifestPath(layout environment.Layout, configuredPath string) string {
	trimmedPath := strings.TrimSpace(configuredPath)
	if len(trimmedPath) == 0 {
		return filepath.Join(layout.Root, manifest.DefaultFileName)
	}
	if filepath.IsAbs(trimmedPath) {
		return filepath.Clean(trimmedPath)
	}
	return filepath.Join(layout.Root, trimmedPath)
}

// Provision locates the runtime, creates the environment, activates it, and installs the manifest.
// Nothing is written when the runtime or the manifest is missing.
func (service *Service) Provision(executionContext context.Context, options Options) (Result, error) {
	layout := options.Layout.Sanitize()
	if validationError := layout.Validate(); validationError != nil {
		return Result{}, fmt.Errorf(layoutValidationErrorTemplate, validationError)
	}

	runtimeName := strings.TrimSpace(options.RuntimeName)
	if len(runtimeName) == 0 {
		runtimeName = DefaultRuntimeName
	}
	runtimePath, locateError := service.locator.Locate(runtimeName)
	if locateError != nil {
		return Result{}, MissingRuntimeError{Runtime: runtimeName, Cause: locateError}
	}
	service.logger.Debug(runtimeLocatedMessageConstant, zap.String(runtimeFieldNameConstant, runtimePath))

	manifestPath := ManifestPath(layout, options.ManifestPath)
	loadedManifest, manifestError := manifest.Load(service.fileSystem, manifestPath)
	if manifestError != nil {
		return Result{}, fmt.Errorf(manifestUnavailableTemplateConstant, manifestError)
	}
	service.logger.Debug(manifestLoadedMessageConstant,
		zap.String(manifestFieldNameConstant, loadedManifest.Path),
		zap.Int(packageCountFieldNameConstant, len(loadedManifest.Packages())),
		zap.Int(optionCountFieldNameConstant, len(loadedManifest.Entries)-len(loadedManifest.Packages())),
	)

	if _, creationError := service.executor.Execute(executionContext, execshell.ShellCommand{
		Name: execshell.CommandName(runtimePath),
		Details: execshell.CommandDetails{
			Arguments:            []string{moduleFlagConstant, venvModuleConstant, layout.Root},
			WorkingDirectory:     layout.Root,
			EnvironmentVariables: options.BaseVariables,
			StandardOutput:       options.StandardOutput,
			StandardError:        options.StandardError,
		},
	}); creationError != nil {
		return Result{}, EnvironmentCreationError{Root: layout.Root, Cause: creationError}
	}
	service.logger.Info(environmentCreatedMessageConstant, zap.String(rootFieldNameConstant, layout.Root))

	activated := environment.Activate(layout, options.BaseVariables, options.ExtraVariables)
	interpreterPath := activated.Executable(environmentInterpreterNameConstant)

	if options.UpgradeInstaller {
		if _, upgradeError := service.executor.Execute(executionContext, service.installerCommand(activated, interpreterPath, options, upgradeFlagConstant, installerModuleConstant)); upgradeError != nil {
			return Result{}, InstallationFailureError{
				ManifestPath: loadedManifest.Path,
				Cause:        fmt.Errorf(installerUpgradeFailureTemplate, layout.Root, upgradeError),
			}
		}
		service.logger.Info(installerUpgradedMessageConstant, zap.String(rootFieldNameConstant, layout.Root))
	}

	if _, installError := service.executor.Execute(executionContext, service.installerCommand(activated, interpreterPath, options, requirementFlagConstant, loadedManifest.Path)); installError != nil {
		return Result{}, InstallationFailureError{ManifestPath: loadedManifest.Path, Cause: installError}
	}
	service.logger.Info(dependenciesInstalledMessageConstant,
		zap.String(rootFieldNameConstant, layout.Root),
		zap.String(manifestFieldNameConstant, loadedManifest.Path),
	)

	return Result{Environment: activated, Manifest: loadedManifest, RuntimePath: runtimePath}, nil
}

func (service *Service) installerCommand(activated environment.Environment, interpreterPath string, options Options, installArguments ...string) execshell.ShellCommand {
	arguments := append([]string{moduleFlagConstant, installerModuleConstant, installSubcommandConstant}, installArguments...)
	return execshell.ShellCommand{
		Name: execshell.CommandName(interpreterPath),
		Details: execshell.CommandDetails{
			Arguments:            arguments,
			WorkingDirectory:     activated.Root(),
			EnvironmentVariables: activated.Variables(),
			StandardOutput:       options.StandardOutput,
			StandardError:        options.StandardError,
		},
	}
}
