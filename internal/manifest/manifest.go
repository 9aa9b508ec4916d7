// Package manifest reads the dependency manifest installed into the environment.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/afero"
)

// DefaultFileName is the manifest looked up in the environment root when none is configured.
const DefaultFileName = "requirements.txt"

const (
	commentPrefixConstant           = "#"
	optionPrefixConstant            = "-"
	markerSeparatorConstant         = ";"
	directReferenceConstant         = "@"
	parenthesizedSpecifierConstant  = "("
	urlSchemeSeparatorConstant      = "://"
	fileSystemMissingMessage        = "manifest file system not configured"
	pathMissingMessage              = "manifest path not provided"
	missingManifestTemplate         = "dependency manifest %s not found"
	manifestReadErrorTemplate       = "unable to read dependency manifest %s: %w"
	namePermittedPunctuationLetters = "-_."
)

// Version specifier operators ordered so that two-character operators match before their prefixes.
var specifierOperators = []string{"===", "==", ">=", "<=", "~=", "!=", ">", "<"}

var (
	// ErrFileSystemMissing indicates Load was called without a file system.
	ErrFileSystemMissing = errors.New(fileSystemMissingMessage)
	// ErrPathMissing indicates Load was called without a manifest path.
	ErrPathMissing = errors.New(pathMissingMessage)
	// ErrMissingManifest is matched by every MissingManifestError.
	ErrMissingManifest = errors.New("dependency manifest not found")
)

// MissingManifestError reports an absent manifest file.
type MissingManifestError struct {
	Path string
}

// Error describes the missing manifest.
func (missingError MissingManifestError) Error() string {
	return fmt.Sprintf(missingManifestTemplate, missingError.Path)
}

// Is matches ErrMissingManifest.
func (missingError MissingManifestError) Is(target error) bool {
	return target == ErrMissingManifest
}

// Entry is a single manifest line.
// Lines that do not split into a name and a specifier, such as VCS URLs or local paths, are kept verbatim in Reference.
type Entry struct {
	Name      string `yaml:"name,omitempty"`
	Specifier string `yaml:"specifier,omitempty"`
	Reference string `yaml:"reference,omitempty"`
	Option    string `yaml:"option,omitempty"`
	Line      int    `yaml:"line"`
}

// IsOption reports whether the entry is an installer option line rather than a package.
func (entry Entry) IsOption() bool {
	return len(entry.Option) > 0
}

// String renders the entry the way it would appear in the manifest.
func (entry Entry) String() string {
	if entry.IsOption() {
		return entry.Option
	}
	if len(entry.Reference) > 0 {
		return entry.Reference
	}
	return entry.Name + entry.Specifier
}

// Manifest is the ordered content of a dependency manifest.
type Manifest struct {
	Path    string  `yaml:"path"`
	Entries []Entry `yaml:"entries"`
}

// Packages returns the package entries, skipping option lines.
func (manifest Manifest) Packages() []Entry {
	packages := make([]Entry, 0, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		if entry.IsOption() {
			continue
		}
		packages = append(packages, entry)
	}
	return packages
}

// Load reads and parses the manifest at path.
func Load(fileSystem afero.Fs, path string) (Manifest, error) {
	if fileSystem == nil {
		return Manifest{}, ErrFileSystemMissing
	}
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return Manifest{}, ErrPathMissing
	}

	manifestFile, openError := fileSystem.Open(trimmedPath)
	if openError != nil {
		if errors.Is(openError, fs.ErrNotExist) {
			return Manifest{}, MissingManifestError{Path: trimmedPath}
		}
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplate, trimmedPath, openError)
	}
	defer manifestFile.Close()

	fileInfo, statError := manifestFile.Stat()
	if statError != nil {
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplate, trimmedPath, statError)
	}
	if fileInfo.IsDir() {
		return Manifest{}, MissingManifestError{Path: trimmedPath}
	}

	entries, parseError := Parse(trimmedPath, manifestFile)
	if parseError != nil {
		return Manifest{}, parseError
	}
	return Manifest{Path: trimmedPath, Entries: entries}, nil
}

// Parse reads manifest lines from reader; path is used only in error messages.
// Parse never rejects a line; lines it cannot split into a name and a specifier become references.
func Parse(path string, reader io.Reader) ([]Entry, error) {
	entries := []Entry{}
	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		content := stripComment(scanner.Text())
		if len(content) == 0 {
			continue
		}
		if strings.HasPrefix(content, optionPrefixConstant) {
			entries = append(entries, Entry{Option: content, Line: lineNumber})
			continue
		}
		entry, valid := parseRequirement(content)
		if !valid {
			entry = Entry{Reference: content}
		}
		entry.Line = lineNumber
		entries = append(entries, entry)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf(manifestReadErrorTemplate, path, scanError)
	}
	return entries, nil
}

func stripComment(line string) string {
	content := line
	if commentIndex := strings.Index(content, commentPrefixConstant); commentIndex >= 0 {
		if commentIndex == 0 || content[commentIndex-1] == ' ' || content[commentIndex-1] == '\t' {
			content = content[:commentIndex]
		}
	}
	return strings.TrimSpace(content)
}

func parseRequirement(content string) (Entry, bool) {
	if strings.Contains(content, urlSchemeSeparatorConstant) && !strings.Contains(content, " "+directReferenceConstant) {
		return Entry{}, false
	}
	nameEnd := len(content)
	for index, character := range content {
		if !isNameCharacter(character) && character != '[' && character != ']' && character != ',' {
			nameEnd = index
			break
		}
	}
	name := strings.TrimSpace(content[:nameEnd])
	if len(name) == 0 || !isNameCharacter(rune(name[0])) {
		return Entry{}, false
	}

	remainder := strings.TrimSpace(content[nameEnd:])
	if len(remainder) == 0 {
		return Entry{Name: name}, true
	}
	if strings.HasPrefix(remainder, markerSeparatorConstant) || strings.HasPrefix(remainder, directReferenceConstant) || strings.HasPrefix(remainder, parenthesizedSpecifierConstant) {
		return Entry{Name: name, Specifier: " " + remainder}, true
	}
	for _, operator := range specifierOperators {
		if strings.HasPrefix(remainder, operator) {
			return Entry{Name: name, Specifier: remainder}, true
		}
	}
	return Entry{}, false
}

func isNameCharacter(character rune) bool {
	switch {
	case character >= 'a' && character <= 'z':
		return true
	case character >= 'A' && character <= 'Z':
		return true
	case character >= '0' && character <= '9':
		return true
	default:
		return strings.ContainsRune(namePermittedPunctuationLetters, character)
	}
}
