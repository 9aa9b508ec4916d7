package targets

import (
	"strings"

	"github.com/tyemirov/venvx/internal/manifest"
	"github.com/tyemirov/venvx/internal/provisioner"
	"github.com/tyemirov/venvx/pkg/taskrunner"
)

// Configuration captures the environment settings shared by every target.
type Configuration struct {
	Root             string                       `mapstructure:"root"`
	Runtime          string                       `mapstructure:"runtime"`
	Manifest         string                       `mapstructure:"manifest"`
	UpgradeInstaller bool                         `mapstructure:"upgrade_installer"`
	Dotenv           string                       `mapstructure:"dotenv"`
	DotenvRequired   bool                         `mapstructure:"dotenv_required"`
	Marker           string                       `mapstructure:"marker"`
	Artifacts        []string                     `mapstructure:"artifacts"`
	DisableSummary   bool                         `mapstructure:"disable_summary"`
	Checks           []taskrunner.CheckDefinition `mapstructure:"checks"`
}

// DefaultConfiguration provides the settings used when no configuration file overrides them.
func DefaultConfiguration() Configuration {
	return Configuration{
		Runtime:  provisioner.DefaultRuntimeName,
		Manifest: manifest.DefaultFileName,
		Checks:   taskrunner.DefaultChecks(),
	}
}

// Sanitize trims configuration values and fills the runtime, manifest, and checks when absent.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Root = strings.TrimSpace(configuration.Root)
	sanitized.Runtime = strings.TrimSpace(configuration.Runtime)
	sanitized.Manifest = strings.TrimSpace(configuration.Manifest)
	sanitized.Dotenv = strings.TrimSpace(configuration.Dotenv)
	sanitized.Marker = strings.TrimSpace(configuration.Marker)

	defaults := DefaultConfiguration()
	if len(sanitized.Runtime) == 0 {
		sanitized.Runtime = defaults.Runtime
	}
	if len(sanitized.Manifest) == 0 {
		sanitized.Manifest = defaults.Manifest
	}
	if len(sanitized.Checks) == 0 {
		sanitized.Checks = defaults.Checks
	}

	artifacts := make([]string, 0, len(configuration.Artifacts))
	for _, artifact := range configuration.Artifacts {
		trimmedArtifact := strings.TrimSpace(artifact)
		if len(trimmedArtifact) == 0 {
			continue
		}
		artifacts = append(artifacts, trimmedArtifact)
	}
	sanitized.Artifacts = artifacts

	return sanitized
}
