package provisioner

import (
	"github.com/tyemirov/venvx/internal/execshell"
)

// RuntimeLocator resolves the interpreter used to create environments.
type RuntimeLocator interface {
	Locate(runtimeName string) (string, error)
}

// SearchPathLocator resolves runtimes against the PATH of the supplied variables,
// falling back to the process search path when no PATH is present.
type SearchPathLocator struct {
	Variables map[string]string
}

// Locate returns the absolute path of the runtime executable.
func (locator SearchPathLocator) Locate(runtimeName string) (string, error) {
	return execshell.LookupExecutable(runtimeName, locator.Variables)
}
