package environment

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// VirtualEnvironmentVariable names the variable announcing the active environment root.
	VirtualEnvironmentVariable = "VIRTUAL_ENV"
	// PathVariable names the executable search path variable.
	PathVariable = "PATH"
	// PythonHomeVariable names the variable that would override the environment's interpreter home.
	PythonHomeVariable = "PYTHONHOME"

	windowsExecutableSuffixConstant = ".exe"
	environmentAssignmentSeparator  = "="
)

// Environment is the explicit activation context of a provisioned environment.
// It is a value: building one never changes the current process environment.
type Environment struct {
	layout    Layout
	variables map[string]string
}

// Activate derives the activation context for layout from the base variables.
// Extra variables override the base variables; the activation variables always win, and PATH keeps
// the merged search path behind the environment's binary directory.
func Activate(layout Layout, baseVariables map[string]string, extraVariables map[string]string) Environment {
	sanitizedLayout := layout.Sanitize()
	variables := make(map[string]string, len(baseVariables)+len(extraVariables)+2)
	for key, value := range baseVariables {
		variables[key] = value
	}
	for key, value := range extraVariables {
		variables[key] = value
	}

	delete(variables, PythonHomeVariable)
	variables[VirtualEnvironmentVariable] = sanitizedLayout.Root

	binaryDirectory := sanitizedLayout.BinaryDirectory()
	existingPath := variables[PathVariable]
	if len(existingPath) == 0 {
		variables[PathVariable] = binaryDirectory
	} else {
		variables[PathVariable] = binaryDirectory + string(os.PathListSeparator) + existingPath
	}

	return Environment{layout: sanitizedLayout, variables: variables}
}

// Root returns the environment root directory.
func (environment Environment) Root() string {
	return environment.layout.Root
}

// Layout returns the environment layout.
func (environment Environment) Layout() Layout {
	return environment.layout
}

// BinaryDirectory returns the directory holding the environment's executables.
func (environment Environment) BinaryDirectory() string {
	return environment.layout.BinaryDirectory()
}

// Executable returns the path of the named executable inside the environment.
func (environment Environment) Executable(name string) string {
	executableName := name
	if runtime.GOOS == windowsOperatingSystemConstant && !strings.HasSuffix(strings.ToLower(executableName), windowsExecutableSuffixConstant) {
		executableName += windowsExecutableSuffixConstant
	}
	return filepath.Join(environment.layout.BinaryDirectory(), executableName)
}

// Value returns a single activation variable.
func (environment Environment) Value(key string) (string, bool) {
	value, exists := environment.variables[key]
	return value, exists
}

// Variables returns a copy of the complete child-process environment.
func (environment Environment) Variables() map[string]string {
	copied := make(map[string]string, len(environment.variables))
	for key, value := range environment.variables {
		copied[key] = value
	}
	return copied
}

// ProcessVariables snapshots the current process environment as a map.
func ProcessVariables() map[string]string {
	return ParseAssignments(os.Environ())
}

// ParseAssignments converts KEY=VALUE entries into a map; later entries win and malformed entries are skipped.
func ParseAssignments(assignments []string) map[string]string {
	variables := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		key, value, found := strings.Cut(assignment, environmentAssignmentSeparator)
		if !found || len(key) == 0 {
			continue
		}
		variables[key] = value
	}
	return variables
}
