package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

const (
	variablesFileOpenErrorTemplate  = "unable to open variables file %s: %w"
	variablesFileParseErrorTemplate = "unable to parse variables file %s: %w"
)

// LoadVariablesFile reads KEY=VALUE assignments in dotenv syntax.
// A missing file yields no variables unless required is set.
func LoadVariablesFile(fileSystem afero.Fs, path string, required bool) (map[string]string, error) {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return map[string]string{}, nil
	}
	if fileSystem == nil {
		return nil, ErrFileSystemMissing
	}

	variablesFile, openError := fileSystem.Open(trimmedPath)
	if openError != nil {
		if errors.Is(openError, fs.ErrNotExist) && !required {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf(variablesFileOpenErrorTemplate, trimmedPath, openError)
	}
	defer variablesFile.Close()

	variables, parseError := godotenv.Parse(variablesFile)
	if parseError != nil {
		return nil, fmt.Errorf(variablesFileParseErrorTemplate, trimmedPath, parseError)
	}
	return variables, nil
}
