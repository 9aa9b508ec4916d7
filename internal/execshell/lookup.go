package execshell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	pathEnvironmentVariableConstant    = "PATH"
	windowsExecutableSuffixConstant    = ".exe"
	windowsOperatingSystemConstant     = "windows"
	executableNotFoundTemplateConstant = "%w: %s"
)

// ErrExecutableNotFound indicates that an executable could not be located on the search path.
var ErrExecutableNotFound = errors.New("executable not found")

// LookupExecutable resolves name to an executable path.
// Names containing a path separator are checked directly. Otherwise the PATH entry of
// environmentVariables is searched when present, falling back to the process search path.
func LookupExecutable(name string, environmentVariables map[string]string) (string, error) {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 {
		return "", ErrCommandNameMissing
	}

	if strings.ContainsRune(trimmedName, filepath.Separator) || strings.ContainsRune(trimmedName, '/') {
		if isExecutableFile(trimmedName) {
			return trimmedName, nil
		}
		return "", fmt.Errorf(executableNotFoundTemplateConstant, ErrExecutableNotFound, trimmedName)
	}

	searchPath, searchPathProvided := environmentVariables[pathEnvironmentVariableConstant]
	if !searchPathProvided {
		resolvedPath, lookupError := exec.LookPath(trimmedName)
		if lookupError != nil {
			return "", fmt.Errorf(executableNotFoundTemplateConstant, ErrExecutableNotFound, trimmedName)
		}
		return resolvedPath, nil
	}

	for _, directory := range filepath.SplitList(searchPath) {
		if len(directory) == 0 {
			continue
		}
		for _, candidateName := range executableCandidateNames(trimmedName) {
			candidatePath := filepath.Join(directory, candidateName)
			if isExecutableFile(candidatePath) {
				return candidatePath, nil
			}
		}
	}

	return "", fmt.Errorf(executableNotFoundTemplateConstant, ErrExecutableNotFound, trimmedName)
}

func executableCandidateNames(name string) []string {
	if runtime.GOOS != windowsOperatingSystemConstant || strings.HasSuffix(strings.ToLower(name), windowsExecutableSuffixConstant) {
		return []string{name}
	}
	return []string{name + windowsExecutableSuffixConstant, name}
}

func isExecutableFile(path string) bool {
	fileInfo, statError := os.Stat(path)
	if statError != nil || fileInfo.IsDir() {
		return false
	}
	if runtime.GOOS == windowsOperatingSystemConstant {
		return true
	}
	return fileInfo.Mode().Perm()&0o111 != 0
}
