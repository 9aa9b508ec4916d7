package taskrunner

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultShellScriptName is the bootstrap script linted by the shell check.
	DefaultShellScriptName = "bootstrap.sh"
	// DefaultPayloadScriptName is the Python script linted by the style and static checks.
	DefaultPayloadScriptName = "compare-aspaths.py"

	checkFailureMessageConstant  = "check failed"
	checkFailureTemplateConstant = "check %s failed: %v"
	checkNameMissingTemplate     = "check #%d has no name"
	checkCommandMissingTemplate  = "check %s has no command"
	checkDuplicateTemplate       = "check %s is defined more than once"
)

// ErrCheckFailure is matched by every CheckFailureError.
var ErrCheckFailure = errors.New(checkFailureMessageConstant)

// CheckDefinition describes one static-analysis gate.
type CheckDefinition struct {
	Name      string   `mapstructure:"name" yaml:"name"`
	Command   string   `mapstructure:"command" yaml:"command"`
	Arguments []string `mapstructure:"arguments" yaml:"arguments,omitempty"`
}

// CommandLine renders the check the way it would be typed in a shell.
func (definition CheckDefinition) CommandLine() string {
	return strings.TrimSpace(strings.Join(append([]string{definition.Command}, definition.Arguments...), " "))
}

// DefaultChecks returns the shell lint, static analysis, and style gates in execution order.
func DefaultChecks() []CheckDefinition {
	return []CheckDefinition{
		{Name: "shellcheck", Command: "shellcheck", Arguments: []string{DefaultShellScriptName}},
		{Name: "pyflakes", Command: "pyflakes", Arguments: []string{DefaultPayloadScriptName}},
		{Name: "pycodestyle", Command: "pycodestyle", Arguments: []string{"--ignore=E501", DefaultPayloadScriptName}},
	}
}

// SanitizeChecks trims check fields, fills missing names from commands, and rejects incomplete or duplicate checks.
func SanitizeChecks(definitions []CheckDefinition) ([]CheckDefinition, error) {
	sanitized := make([]CheckDefinition, 0, len(definitions))
	seenNames := make(map[string]struct{}, len(definitions))
	for index, definition := range definitions {
		command := strings.TrimSpace(definition.Command)
		name := strings.TrimSpace(definition.Name)
		if len(name) == 0 {
			name = command
		}
		if len(name) == 0 {
			return nil, fmt.Errorf(checkNameMissingTemplate, index+1)
		}
		if len(command) == 0 {
			return nil, fmt.Errorf(checkCommandMissingTemplate, name)
		}
		if _, seen := seenNames[name]; seen {
			return nil, fmt.Errorf(checkDuplicateTemplate, name)
		}
		seenNames[name] = struct{}{}

		arguments := make([]string, 0, len(definition.Arguments))
		for _, argument := range definition.Arguments {
			trimmedArgument := strings.TrimSpace(argument)
			if len(trimmedArgument) == 0 {
				continue
			}
			arguments = append(arguments, trimmedArgument)
		}
		sanitized = append(sanitized, CheckDefinition{Name: name, Command: command, Arguments: arguments})
	}
	return sanitized, nil
}

// CheckFailureError identifies the first check that failed.
type CheckFailureError struct {
	Check CheckDefinition
	Cause error
}

// Error describes the failing check.
func (failureError CheckFailureError) Error() string {
	return fmt.Sprintf(checkFailureTemplateConstant, failureError.Check.Name, failureError.Cause)
}

// Is matches ErrCheckFailure.
func (failureError CheckFailureError) Is(target error) bool {
	return target == ErrCheckFailure
}

// Unwrap exposes the executor failure.
func (failureError CheckFailureError) Unwrap() error {
	return failureError.Cause
}
