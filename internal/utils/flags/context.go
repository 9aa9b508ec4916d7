// Package flags provides helpers for binding and reading shared Cobra flags.
package flags

import "github.com/spf13/cobra"

const (
	// RootFlagName exposes the shared environment root flag name.
	RootFlagName = "root"
	// RootFlagUsage describes the shared environment root flag purpose.
	RootFlagUsage = "Directory hosting the isolated environment (defaults to the configured root or the working directory)"
	// ManifestFlagName exposes the shared manifest flag name.
	ManifestFlagName = "manifest"
	// ManifestFlagUsage describes the shared manifest flag purpose.
	ManifestFlagUsage = "Dependency manifest installed into the environment"
)

// PathFlagDefinition captures configuration for a single path-valued flag.
type PathFlagDefinition struct {
	Name    string
	Usage   string
	Enabled bool
}

// PathFlagDefinitions groups the environment path flag definitions.
type PathFlagDefinitions struct {
	Root     PathFlagDefinition
	Manifest PathFlagDefinition
}

// PathFlagValues stores values bound to the environment path flags.
type PathFlagValues struct {
	Root     string
	Manifest string
}

// BindPathFlags attaches the environment path flags to the provided command using persistent scope.
func BindPathFlags(command *cobra.Command, defaults PathFlagValues, definitions PathFlagDefinitions) *PathFlagValues {
	values := defaults
	if command == nil {
		return &values
	}

	persistentFlagSet := command.PersistentFlags()
	if definitions.Root.Enabled && len(definitions.Root.Name) > 0 {
		persistentFlagSet.StringVar(&values.Root, definitions.Root.Name, defaults.Root, definitions.Root.Usage)
	}
	if definitions.Manifest.Enabled && len(definitions.Manifest.Name) > 0 {
		persistentFlagSet.StringVar(&values.Manifest, definitions.Manifest.Name, defaults.Manifest, definitions.Manifest.Usage)
	}

	return &values
}
