package provisioner

import (
	"errors"
	"fmt"
)

const (
	missingRuntimeMessageConstant        = "python runtime not found"
	environmentCreationMessageConstant   = "environment creation failed"
	installationFailureMessageConstant   = "dependency installation failed"
	missingRuntimeTemplateConstant       = "%s: %q is not available on PATH"
	environmentCreationTemplateConstant  = "%s at %s: %v"
	installationFailureTemplateConstant  = "%s from %s: %v"
	installerUpgradeFailureTemplate      = "installer upgrade failed in %s: %w"
	manifestUnavailableTemplateConstant  = "dependency manifest unavailable: %w"
	executorNotConfiguredMessageConstant = "provisioner command executor not configured"
	locatorNotConfiguredMessageConstant  = "provisioner runtime locator not configured"
	fileSystemNotConfiguredMessage       = "provisioner file system not configured"
)

var (
	// ErrMissingRuntime is matched by every MissingRuntimeError.
	ErrMissingRuntime = errors.New(missingRuntimeMessageConstant)
	// ErrEnvironmentCreation is matched by every EnvironmentCreationError.
	ErrEnvironmentCreation = errors.New(environmentCreationMessageConstant)
	// ErrInstallationFailure is matched by every InstallationFailureError.
	ErrInstallationFailure = errors.New(installationFailureMessageConstant)
	// ErrExecutorNotConfigured indicates the command executor dependency was missing.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrLocatorNotConfigured indicates the runtime locator dependency was missing.
	ErrLocatorNotConfigured = errors.New(locatorNotConfiguredMessageConstant)
	// ErrFileSystemNotConfigured indicates the file system dependency was missing.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessage)
)

// MissingRuntimeError reports that the interpreter used to create environments is absent.
type MissingRuntimeError struct {
	Runtime string
	Cause   error
}

// Error describes the missing runtime.
func (runtimeError MissingRuntimeError) Error() string {
	return fmt.Sprintf(missingRuntimeTemplateConstant, missingRuntimeMessageConstant, runtimeError.Runtime)
}

// Is matches ErrMissingRuntime.
func (runtimeError MissingRuntimeError) Is(target error) bool {
	return target == ErrMissingRuntime
}

// Unwrap exposes the lookup failure.
func (runtimeError MissingRuntimeError) Unwrap() error {
	return runtimeError.Cause
}

// EnvironmentCreationError reports a failed environment creation step.
type EnvironmentCreationError struct {
	Root  string
	Cause error
}

// Error describes the creation failure.
func (creationError EnvironmentCreationError) Error() string {
	return fmt.Sprintf(environmentCreationTemplateConstant, environmentCreationMessageConstant, creationError.Root, creationError.Cause)
}

// Is matches ErrEnvironmentCreation.
func (creationError EnvironmentCreationError) Is(target error) bool {
	return target == ErrEnvironmentCreation
}

// Unwrap exposes the executor failure.
func (creationError EnvironmentCreationError) Unwrap() error {
	return creationError.Cause
}

// InstallationFailureError reports a failed dependency installation.
type InstallationFailureError struct {
	ManifestPath string
	Cause        error
}

// Error describes the installation failure.
func (installationError InstallationFailureError) Error() string {
	return fmt.Sprintf(installationFailureTemplateConstant, installationFailureMessageConstant, installationError.ManifestPath, installationError.Cause)
}

// Is matches ErrInstallationFailure.
func (installationError InstallationFailureError) Is(target error) bool {
	return target == ErrInstallationFailure
}

// Unwrap exposes the executor failure.
func (installationError InstallationFailureError) Unwrap() error {
	return installationError.Cause
}
