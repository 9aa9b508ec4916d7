package environment_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/venvx/internal/environment"
)

const testEnvironmentRootConstant = "/srv/project"

func populateEnvironment(testInstance *testing.T, fileSystem afero.Fs, root string) {
	testInstance.Helper()
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(root, "lib", "python3.12", "site-packages", "numpy"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(root, "include"), 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(root, "bin", "python"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(root, environment.DefaultMarkerName), []byte("home = /usr/bin\n"), 0o644))
}

func TestNewInspectorValidatesLayout(testInstance *testing.T) {
	testCases := []struct {
		name        string
		fileSystem  afero.Fs
		layout      environment.Layout
		expectError error
		errorText   string
	}{
		{
			name:        "missing_file_system",
			layout:      environment.DefaultLayout(testEnvironmentRootConstant),
			expectError: environment.ErrFileSystemMissing,
		},
		{
			name:        "missing_root",
			fileSystem:  afero.NewMemMapFs(),
			layout:      environment.DefaultLayout("  "),
			expectError: environment.ErrRootMissing,
		},
		{
			name:       "relative_root",
			fileSystem: afero.NewMemMapFs(),
			layout:     environment.DefaultLayout("project"),
			errorText:  `environment root "project" must be absolute`,
		},
		{
			name:       "escaping_artifact",
			fileSystem: afero.NewMemMapFs(),
			layout: environment.Layout{
				Root:          testEnvironmentRootConstant,
				ArtifactNames: []string{"bin", "../etc"},
			},
			errorText: `environment artifact "../etc" must be a plain name inside the root`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			if runtime.GOOS == "windows" && testCase.name == "relative_root" {
				testInstance.Skip("posix path semantics")
			}
			inspector, creationError := environment.NewInspector(testCase.fileSystem, testCase.layout)
			require.Nil(testInstance, inspector)
			if testCase.expectError != nil {
				require.ErrorIs(testInstance, creationError, testCase.expectError)
				return
			}
			require.EqualError(testInstance, creationError, testCase.errorText)
		})
	}
}

func TestInspectorExistsTracksMarker(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	inspector, creationError := environment.NewInspector(fileSystem, environment.DefaultLayout(testEnvironmentRootConstant))
	require.NoError(testInstance, creationError)

	exists, existsError := inspector.Exists()
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)

	populateEnvironment(testInstance, fileSystem, testEnvironmentRootConstant)

	exists, existsError = inspector.Exists()
	require.NoError(testInstance, existsError)
	require.True(testInstance, exists)
}

func TestInspectorExistsIgnoresMarkerDirectory(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testEnvironmentRootConstant, environment.DefaultMarkerName), 0o755))

	inspector, creationError := environment.NewInspector(fileSystem, environment.DefaultLayout(testEnvironmentRootConstant))
	require.NoError(testInstance, creationError)

	exists, existsError := inspector.Exists()
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestInspectorRemoveIsIdempotent(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	populateEnvironment(testInstance, fileSystem, testEnvironmentRootConstant)
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(testEnvironmentRootConstant, "compare-aspaths.py"), []byte("print()\n"), 0o644))

	layout := environment.Layout{
		Root:          testEnvironmentRootConstant,
		ArtifactNames: []string{"bin", "include", "lib", "lib64", "share"},
	}
	inspector, creationError := environment.NewInspector(fileSystem, layout)
	require.NoError(testInstance, creationError)

	firstReport, firstRemoveError := inspector.Remove()
	require.NoError(testInstance, firstRemoveError)
	require.Equal(testInstance, []string{environment.DefaultMarkerName, "bin", "include", "lib"}, firstReport.Removed)
	require.Equal(testInstance, []string{"lib64", "share"}, firstReport.Absent)

	exists, existsError := inspector.Exists()
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)

	for _, artifactName := range []string{"bin", "include", "lib", environment.DefaultMarkerName} {
		present, presentError := afero.Exists(fileSystem, filepath.Join(testEnvironmentRootConstant, artifactName))
		require.NoError(testInstance, presentError)
		require.False(testInstance, present, artifactName)
	}

	payloadPresent, payloadError := afero.Exists(fileSystem, filepath.Join(testEnvironmentRootConstant, "compare-aspaths.py"))
	require.NoError(testInstance, payloadError)
	require.True(testInstance, payloadPresent)

	secondReport, secondRemoveError := inspector.Remove()
	require.NoError(testInstance, secondRemoveError)
	require.Empty(testInstance, secondReport.Removed)
	require.Len(testInstance, secondReport.Absent, len(inspector.Layout().ArtifactNames))
}

func TestInspectorRemoveDoesNotFollowSymlinks(testInstance *testing.T) {
	if runtime.GOOS == "windows" {
		testInstance.Skip("symlink creation requires elevated privileges on windows")
	}

	rootDirectory := testInstance.TempDir()
	libraryDirectory := filepath.Join(rootDirectory, "lib")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(libraryDirectory, "python3.12"), 0o755))
	require.NoError(testInstance, os.Symlink("lib", filepath.Join(rootDirectory, "lib64")))

	outsideDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(outsideDirectory, "keep.txt"), []byte("keep"), 0o644))
	require.NoError(testInstance, os.Symlink(outsideDirectory, filepath.Join(rootDirectory, "share")))

	inspector, creationError := environment.NewInspector(afero.NewOsFs(), environment.DefaultLayout(rootDirectory))
	require.NoError(testInstance, creationError)

	statuses, statusError := inspector.Artifacts()
	require.NoError(testInstance, statusError)
	kinds := map[string]environment.ArtifactKind{}
	for _, status := range statuses {
		kinds[status.Name] = status.Kind
	}
	require.Equal(testInstance, environment.ArtifactKindSymlink, kinds["lib64"])
	require.Equal(testInstance, environment.ArtifactKindDirectory, kinds["lib"])
	require.Equal(testInstance, environment.ArtifactKindAbsent, kinds[environment.DefaultMarkerName])

	_, removeError := inspector.Remove()
	require.NoError(testInstance, removeError)

	_, keptError := os.Stat(filepath.Join(outsideDirectory, "keep.txt"))
	require.NoError(testInstance, keptError)

	remainingEntries, readError := os.ReadDir(rootDirectory)
	require.NoError(testInstance, readError)
	require.Empty(testInstance, remainingEntries)
}
