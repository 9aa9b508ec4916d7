//go:build !windows

package execshell_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/venvx/internal/execshell"
)

func writeExecutableScript(testInstance *testing.T, directory string, name string, content string) string {
	testInstance.Helper()
	scriptPath := filepath.Join(directory, name)
	require.NoError(testInstance, os.WriteFile(scriptPath, []byte(content), 0o755))
	return scriptPath
}

func TestOSCommandRunnerStreamsAndCapturesOutput(testInstance *testing.T) {
	binaryDirectory := testInstance.TempDir()
	writeExecutableScript(testInstance, binaryDirectory, "greeter", "#!/bin/sh\necho \"hello $GREETING_TARGET\"\necho warning >&2\nexit 0\n")

	var streamedOutput bytes.Buffer
	var streamedErrors bytes.Buffer

	executionContext, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, runError := execshell.NewOSCommandRunner().Run(executionContext, execshell.ShellCommand{
		Name: "greeter",
		Details: execshell.CommandDetails{
			WorkingDirectory: binaryDirectory,
			EnvironmentVariables: map[string]string{
				"PATH":            binaryDirectory + string(os.PathListSeparator) + os.Getenv("PATH"),
				"GREETING_TARGET": "environment",
			},
			StandardOutput: &streamedOutput,
			StandardError:  &streamedErrors,
		},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 0, result.ExitCode)
	require.Equal(testInstance, "hello environment\n", result.StandardOutput)
	require.Equal(testInstance, "warning\n", result.StandardError)
	require.Equal(testInstance, result.StandardOutput, streamedOutput.String())
	require.Equal(testInstance, result.StandardError, streamedErrors.String())
}

func TestOSCommandRunnerReportsExitCode(testInstance *testing.T) {
	binaryDirectory := testInstance.TempDir()
	scriptPath := writeExecutableScript(testInstance, binaryDirectory, "failing", "#!/bin/sh\necho broken >&2\nexit 3\n")

	result, runError := execshell.NewOSCommandRunner().Run(context.Background(), execshell.ShellCommand{Name: execshell.CommandName(scriptPath)})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 3, result.ExitCode)
	require.Equal(testInstance, "broken\n", result.StandardError)
}

func TestOSCommandRunnerFailsForUnknownExecutable(testInstance *testing.T) {
	_, runError := execshell.NewOSCommandRunner().Run(context.Background(), execshell.ShellCommand{
		Name:    "definitely-not-installed-tool",
		Details: execshell.CommandDetails{EnvironmentVariables: map[string]string{"PATH": testInstance.TempDir()}},
	})
	require.ErrorIs(testInstance, runError, execshell.ErrExecutableNotFound)
}

func TestLookupExecutableHonorsProvidedSearchPath(testInstance *testing.T) {
	firstDirectory := testInstance.TempDir()
	secondDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(firstDirectory, "tool"), []byte("not executable"), 0o644))
	expectedPath := writeExecutableScript(testInstance, secondDirectory, "tool", "#!/bin/sh\nexit 0\n")

	resolvedPath, lookupError := execshell.LookupExecutable("tool", map[string]string{
		"PATH": firstDirectory + string(os.PathListSeparator) + secondDirectory,
	})
	require.NoError(testInstance, lookupError)
	require.Equal(testInstance, expectedPath, resolvedPath)
}

func TestLookupExecutableRejectsDirectories(testInstance *testing.T) {
	directory := testInstance.TempDir()
	require.NoError(testInstance, os.Mkdir(filepath.Join(directory, "tool"), 0o755))

	_, lookupError := execshell.LookupExecutable("tool", map[string]string{"PATH": directory})
	require.ErrorIs(testInstance, lookupError, execshell.ErrExecutableNotFound)

	_, directLookupError := execshell.LookupExecutable(filepath.Join(directory, "tool"), nil)
	require.ErrorIs(testInstance, directLookupError, execshell.ErrExecutableNotFound)
}
