package roots

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	flagutils "github.com/tyemirov/venvx/internal/utils/flags"
)

const (
	positionalArgumentsUnsupportedMessage = "targets accept no positional arguments; use --root to select the environment directory"
	workingDirectoryErrorTemplate         = "unable to determine working directory: %w"
	absolutePathErrorTemplate             = "unable to resolve environment root %s: %w"
	homeDirectoryPrefix                   = "~"
)

// PositionalArgumentsUnsupportedError returns the canonical error when positional arguments are supplied.
func PositionalArgumentsUnsupportedError() error {
	return errors.New(positionalArgumentsUnsupportedMessage)
}

// PositionalArgumentsUnsupportedMessage exposes the canonical positional-arguments error text.
func PositionalArgumentsUnsupportedMessage() string {
	return positionalArgumentsUnsupportedMessage
}

// Resolve determines the absolute environment root for a command.
// The --root flag wins over the configured root, which wins over the working directory.
func Resolve(command *cobra.Command, positional []string, configured string) (string, error) {
	for _, argument := range positional {
		if len(strings.TrimSpace(argument)) > 0 {
			if command != nil {
				_ = command.Help()
			}
			return "", PositionalArgumentsUnsupportedError()
		}
	}

	candidate := ""
	if command != nil {
		if flagValue, _, flagError := flagutils.StringFlag(command, flagutils.RootFlagName); flagError == nil {
			candidate = strings.TrimSpace(flagValue)
		}
	}
	if len(candidate) == 0 {
		candidate = strings.TrimSpace(configured)
	}
	if len(candidate) == 0 {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf(workingDirectoryErrorTemplate, workingDirectoryError)
		}
		return filepath.Clean(workingDirectory), nil
	}

	return Absolute(candidate)
}

// Absolute expands a leading tilde and converts the path to a cleaned absolute path.
func Absolute(path string) (string, error) {
	expanded := strings.TrimSpace(path)
	if expanded == homeDirectoryPrefix || strings.HasPrefix(expanded, homeDirectoryPrefix+string(filepath.Separator)) {
		homeDirectory, homeDirectoryError := os.UserHomeDir()
		if homeDirectoryError != nil {
			return "", fmt.Errorf(absolutePathErrorTemplate, path, homeDirectoryError)
		}
		expanded = filepath.Join(homeDirectory, strings.TrimPrefix(expanded, homeDirectoryPrefix))
	}

	absolutePath, absoluteError := filepath.Abs(expanded)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathErrorTemplate, path, absoluteError)
	}
	return absolutePath, nil
}
