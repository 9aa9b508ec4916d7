package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

const (
	fileSystemMissingMessageConstant = "environment file system not configured"
	markerInspectErrorTemplate       = "unable to inspect environment marker %s: %w"
	artifactInspectErrorTemplate     = "unable to inspect environment artifact %s: %w"
	artifactRemoveErrorTemplate      = "unable to remove environment artifact %s: %w"
)

// ErrFileSystemMissing indicates the inspector was built without a file system.
var ErrFileSystemMissing = errors.New(fileSystemMissingMessageConstant)

// ArtifactKind classifies an artifact found on disk.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactKindAbsent    ArtifactKind = "absent"
	ArtifactKindFile      ArtifactKind = "file"
	ArtifactKindDirectory ArtifactKind = "directory"
	ArtifactKindSymlink   ArtifactKind = "symlink"
)

// ArtifactStatus reports whether a generated artifact is present.
type ArtifactStatus struct {
	Name string       `yaml:"name"`
	Path string       `yaml:"path"`
	Kind ArtifactKind `yaml:"kind"`
}

// Present reports whether the artifact exists in any form.
func (status ArtifactStatus) Present() bool {
	return status.Kind != ArtifactKindAbsent
}

// RemovalReport lists what a removal pass deleted and what was already absent.
type RemovalReport struct {
	Removed []string
	Absent  []string
}

// Inspector answers state queries about an environment layout and removes its artifacts.
type Inspector struct {
	fileSystem afero.Fs
	layout     Layout
}

// NewInspector validates the layout and binds it to the provided file system.
func NewInspector(fileSystem afero.Fs, layout Layout) (*Inspector, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemMissing
	}
	sanitizedLayout := layout.Sanitize()
	if validationError := sanitizedLayout.Validate(); validationError != nil {
		return nil, validationError
	}
	return &Inspector{fileSystem: fileSystem, layout: sanitizedLayout}, nil
}

// Layout returns the sanitized layout the inspector operates on.
func (inspector *Inspector) Layout() Layout {
	return inspector.layout
}

// Exists reports whether the provisioning marker is present as a regular file.
func (inspector *Inspector) Exists() (bool, error) {
	markerPath := inspector.layout.MarkerPath()
	markerInfo, statError := inspector.fileSystem.Stat(markerPath)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(markerInspectErrorTemplate, markerPath, statError)
	}
	return !markerInfo.IsDir(), nil
}

// Artifacts reports the presence of every generated artifact in layout order.
func (inspector *Inspector) Artifacts() ([]ArtifactStatus, error) {
	statuses := make([]ArtifactStatus, 0, len(inspector.layout.ArtifactNames))
	for _, artifactName := range inspector.layout.ArtifactNames {
		artifactPath := inspector.layout.ArtifactPath(artifactName)
		artifactKind, inspectError := inspector.inspect(artifactPath)
		if inspectError != nil {
			return nil, inspectError
		}
		statuses = append(statuses, ArtifactStatus{Name: artifactName, Path: artifactPath, Kind: artifactKind})
	}
	return statuses, nil
}

// Remove deletes every generated artifact, the marker first, so an interrupted removal never leaves a marker behind.
// Missing artifacts are reported as absent; symlinks are removed without following them.
func (inspector *Inspector) Remove() (RemovalReport, error) {
	report := RemovalReport{}
	for _, artifactName := range inspector.layout.ArtifactNames {
		artifactPath := inspector.layout.ArtifactPath(artifactName)
		artifactKind, inspectError := inspector.inspect(artifactPath)
		if inspectError != nil {
			return report, inspectError
		}
		if artifactKind == ArtifactKindAbsent {
			report.Absent = append(report.Absent, artifactName)
			continue
		}

		var removeError error
		if artifactKind == ArtifactKindDirectory {
			removeError = inspector.fileSystem.RemoveAll(artifactPath)
		} else {
			removeError = inspector.fileSystem.Remove(artifactPath)
		}
		if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
			return report, fmt.Errorf(artifactRemoveErrorTemplate, artifactPath, removeError)
		}
		report.Removed = append(report.Removed, artifactName)
	}
	return report, nil
}

func (inspector *Inspector) inspect(artifactPath string) (ArtifactKind, error) {
	var artifactInfo os.FileInfo
	var statError error
	if lstater, supportsLstat := inspector.fileSystem.(afero.Lstater); supportsLstat {
		artifactInfo, _, statError = lstater.LstatIfPossible(artifactPath)
	} else {
		artifactInfo, statError = inspector.fileSystem.Stat(artifactPath)
	}
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return ArtifactKindAbsent, nil
		}
		return ArtifactKindAbsent, fmt.Errorf(artifactInspectErrorTemplate, artifactPath, statError)
	}

	switch {
	case artifactInfo.Mode()&os.ModeSymlink != 0:
		return ArtifactKindSymlink, nil
	case artifactInfo.IsDir():
		return ArtifactKindDirectory, nil
	default:
		return ArtifactKindFile, nil
	}
}
