package execshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sort"
)

// OSCommandRunner executes commands as operating system processes.
// Output is captured and, when writers are supplied, streamed to them as it is produced.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an OSCommandRunner.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// Run executes the command and reports its exit status. Non-zero exits are not errors.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executablePath, lookupError := LookupExecutable(string(command.Name), command.Details.EnvironmentVariables)
	if lookupError != nil {
		return ExecutionResult{}, lookupError
	}

	process := exec.CommandContext(executionContext, executablePath, command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	if len(command.Details.EnvironmentVariables) > 0 {
		process.Env = flattenEnvironment(command.Details.EnvironmentVariables)
	}
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	process.Stdout = teeWriter(&standardOutputBuffer, command.Details.StandardOutput)
	process.Stderr = teeWriter(&standardErrorBuffer, command.Details.StandardError)

	runError := process.Run()
	result := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	if runError != nil {
		return result, runError
	}
	return result, nil
}

func teeWriter(buffer *bytes.Buffer, stream io.Writer) io.Writer {
	if stream == nil {
		return buffer
	}
	return io.MultiWriter(buffer, stream)
}

func flattenEnvironment(environmentVariables map[string]string) []string {
	keys := make([]string, 0, len(environmentVariables))
	for key := range environmentVariables {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	flattened := make([]string, 0, len(keys))
	for _, key := range keys {
		flattened = append(flattened, key+"="+environmentVariables[key])
	}
	return flattened
}
