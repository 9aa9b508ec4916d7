package environment

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// DefaultMarkerName is the file written by environment creation and used as the provisioning sentinel.
	DefaultMarkerName = "pyvenv.cfg"

	posixBinaryDirectoryNameConstant   = "bin"
	windowsBinaryDirectoryNameConstant = "Scripts"
	windowsOperatingSystemConstant     = "windows"
	parentDirectoryReferenceConstant   = ".."
	rootMissingMessageConstant         = "environment root not provided"
	rootRelativeTemplateConstant       = "environment root %q must be absolute"
	markerMissingMessageConstant       = "environment marker name not provided"
	artifactInvalidTemplateConstant    = "environment artifact %q must be a plain name inside the root"
)

var (
	// ErrRootMissing indicates the layout has no root directory.
	ErrRootMissing = errors.New(rootMissingMessageConstant)
	// ErrMarkerMissing indicates the layout has no marker file name.
	ErrMarkerMissing = errors.New(markerMissingMessageConstant)
)

// DefaultArtifactNames lists the generated entries of a virtual environment rooted in a project directory.
func DefaultArtifactNames() []string {
	if runtime.GOOS == windowsOperatingSystemConstant {
		return []string{windowsBinaryDirectoryNameConstant, "Include", "Lib", DefaultMarkerName}
	}
	return []string{posixBinaryDirectoryNameConstant, "include", "lib", "lib64", "share", DefaultMarkerName}
}

// DefaultBinaryDirectoryName returns the executable directory name for the current platform.
func DefaultBinaryDirectoryName() string {
	if runtime.GOOS == windowsOperatingSystemConstant {
		return windowsBinaryDirectoryNameConstant
	}
	return posixBinaryDirectoryNameConstant
}

// Layout describes where an environment and its generated artifacts live.
type Layout struct {
	Root                string
	MarkerName          string
	ArtifactNames       []string
	BinaryDirectoryName string
}

// DefaultLayout returns the layout of a virtual environment created directly in root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:                root,
		MarkerName:          DefaultMarkerName,
		ArtifactNames:       DefaultArtifactNames(),
		BinaryDirectoryName: DefaultBinaryDirectoryName(),
	}
}

// Sanitize trims names, fills platform defaults, and removes duplicate artifacts while keeping order.
func (layout Layout) Sanitize() Layout {
	sanitized := Layout{
		Root:                strings.TrimSpace(layout.Root),
		MarkerName:          strings.TrimSpace(layout.MarkerName),
		BinaryDirectoryName: strings.TrimSpace(layout.BinaryDirectoryName),
	}
	if len(sanitized.Root) > 0 {
		sanitized.Root = filepath.Clean(sanitized.Root)
	}
	if len(sanitized.MarkerName) == 0 {
		sanitized.MarkerName = DefaultMarkerName
	}
	if len(sanitized.BinaryDirectoryName) == 0 {
		sanitized.BinaryDirectoryName = DefaultBinaryDirectoryName()
	}

	artifactNames := layout.ArtifactNames
	if len(artifactNames) == 0 {
		artifactNames = DefaultArtifactNames()
	}
	seenNames := make(map[string]struct{}, len(artifactNames)+1)
	for _, artifactName := range append([]string{sanitized.MarkerName}, artifactNames...) {
		trimmedName := strings.TrimSpace(artifactName)
		if len(trimmedName) == 0 {
			continue
		}
		if _, seen := seenNames[trimmedName]; seen {
			continue
		}
		seenNames[trimmedName] = struct{}{}
		sanitized.ArtifactNames = append(sanitized.ArtifactNames, trimmedName)
	}
	return sanitized
}

// Validate ensures every path the layout produces stays inside the root.
func (layout Layout) Validate() error {
	if len(strings.TrimSpace(layout.Root)) == 0 {
		return ErrRootMissing
	}
	if !filepath.IsAbs(layout.Root) {
		return fmt.Errorf(rootRelativeTemplateConstant, layout.Root)
	}
	if len(strings.TrimSpace(layout.MarkerName)) == 0 {
		return ErrMarkerMissing
	}
	for _, name := range append([]string{layout.MarkerName, layout.BinaryDirectoryName}, layout.ArtifactNames...) {
		if !isPlainName(name) {
			return fmt.Errorf(artifactInvalidTemplateConstant, name)
		}
	}
	return nil
}

// MarkerPath returns the absolute path of the provisioning marker.
func (layout Layout) MarkerPath() string {
	return filepath.Join(layout.Root, layout.MarkerName)
}

// BinaryDirectory returns the directory holding the environment's executables.
func (layout Layout) BinaryDirectory() string {
	return filepath.Join(layout.Root, layout.BinaryDirectoryName)
}

// ArtifactPath returns the absolute path of the named artifact.
func (layout Layout) ArtifactPath(artifactName string) string {
	return filepath.Join(layout.Root, artifactName)
}

func isPlainName(name string) bool {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 || trimmedName == "." || trimmedName == parentDirectoryReferenceConstant {
		return false
	}
	return !strings.ContainsAny(trimmedName, `/\`)
}
