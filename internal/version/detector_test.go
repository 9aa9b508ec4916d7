package version_test

import (
	"context"
	"errors"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/venvx/internal/execshell"
	"github.com/tyemirov/venvx/internal/version"
)

type stubBuildInfoProvider struct {
	info      *debug.BuildInfo
	available bool
}

func (provider stubBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	if !provider.available {
		return nil, false
	}
	return provider.info, true
}

type scriptedGitCommand struct {
	expectedArguments []string
	output            string
	executionError    error
}

type scriptedExecutor struct {
	testInstance *testing.T
	commands     []scriptedGitCommand
}

func (executor *scriptedExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.testInstance.Helper()
	require.NotEmpty(executor.testInstance, executor.commands)
	require.Equal(executor.testInstance, execshell.CommandName("git"), command.Name)
	require.Equal(executor.testInstance, "0", command.Details.EnvironmentVariables["GIT_TERMINAL_PROMPT"])

	expected := executor.commands[0]
	executor.commands = executor.commands[1:]
	require.Equal(executor.testInstance, expected.expectedArguments, command.Details.Arguments)
	return execshell.ExecutionResult{StandardOutput: expected.output}, expected.executionError
}

func develBuildInfo() stubBuildInfoProvider {
	return stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, available: true}
}

func TestVersionUsesBuildInfoWhenAvailable(testInstance *testing.T) {
	executor := &scriptedExecutor{testInstance: testInstance}
	detector, creationError := version.NewDetector(version.Dependencies{
		BuildInfoProvider: stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "v0.4.1"}}, available: true},
		CommandExecutor:   executor,
	})
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, "v0.4.1", detector.Version(context.Background()))
}

func TestVersionFallsBackToGitDescribe(testInstance *testing.T) {
	testCases := []struct {
		name     string
		commands []scriptedGitCommand
		expected string
	}{
		{
			name: "exact_tag",
			commands: []scriptedGitCommand{
				{expectedArguments: []string{"rev-parse", "--show-toplevel"}, output: "/workspace/venvx\n"},
				{expectedArguments: []string{"describe", "--tags", "--exact-match"}, output: "v0.3.0\n"},
			},
			expected: "v0.3.0",
		},
		{
			name: "long_describe",
			commands: []scriptedGitCommand{
				{expectedArguments: []string{"rev-parse", "--show-toplevel"}, output: "/workspace/venvx"},
				{expectedArguments: []string{"describe", "--tags", "--exact-match"}, executionError: errors.New("no tag")},
				{expectedArguments: []string{"describe", "--tags", "--long", "--dirty"}, output: "v0.3.0-2-g1a2b3c4-dirty"},
			},
			expected: "v0.3.0-2-g1a2b3c4-dirty",
		},
		{
			name: "unknown",
			commands: []scriptedGitCommand{
				{expectedArguments: []string{"rev-parse", "--show-toplevel"}, executionError: errors.New("not a repository")},
				{expectedArguments: []string{"describe", "--tags", "--exact-match"}, executionError: errors.New("not a repository")},
				{expectedArguments: []string{"describe", "--tags", "--long", "--dirty"}, executionError: errors.New("not a repository")},
			},
			expected: "unknown",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedExecutor{testInstance: testInstance, commands: testCase.commands}
			detector, creationError := version.NewDetector(version.Dependencies{
				BuildInfoProvider: develBuildInfo(),
				CommandExecutor:   executor,
				WorkingDirectory:  "/workspace/venvx",
			})
			require.NoError(testInstance, creationError)
			require.Equal(testInstance, testCase.expected, detector.Version(context.Background()))
			require.Empty(testInstance, executor.commands)
		})
	}
}
