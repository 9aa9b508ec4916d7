package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/venvx/internal/environment"
	"github.com/tyemirov/venvx/internal/manifest"
	"github.com/tyemirov/venvx/internal/provisioner"
)

// StatusFormat selects how a status report is rendered.
type StatusFormat string

const (
	// StatusFormatHuman renders an aligned plain-text report.
	StatusFormatHuman StatusFormat = "human"
	// StatusFormatYAML renders the report as a YAML document.
	StatusFormatYAML StatusFormat = "yaml"

	statusFormatUnsupportedTemplate = "unsupported status format %q"
	statusRenderErrorTemplate       = "unable to render status: %w"
	artifactsQueryErrorTemplate     = "unable to inspect environment artifacts: %w"
	yamlIndentWidthConstant         = 2
	humanProvisionedLabelConstant   = "provisioned"
	humanMissingLabelConstant       = "not provisioned"
)

// StatusReport describes the environment tree and the configured targets.
type StatusReport struct {
	RunID         string                       `yaml:"run_id"`
	Root          string                       `yaml:"root"`
	Provisioned   bool                         `yaml:"provisioned"`
	Marker        string                       `yaml:"marker"`
	Artifacts     []environment.ArtifactStatus `yaml:"artifacts"`
	ManifestPath  string                       `yaml:"manifest_path"`
	Manifest      []manifest.Entry             `yaml:"manifest,omitempty"`
	ManifestError string                       `yaml:"manifest_error,omitempty"`
	Checks        []CheckDefinition            `yaml:"checks"`
}

// ParseStatusFormat validates a user supplied format name.
func ParseStatusFormat(value string) (StatusFormat, error) {
	switch StatusFormat(strings.ToLower(strings.TrimSpace(value))) {
	case StatusFormatHuman, "":
		return StatusFormatHuman, nil
	case StatusFormatYAML:
		return StatusFormatYAML, nil
	default:
		return "", fmt.Errorf(statusFormatUnsupportedTemplate, value)
	}
}

// Status reports marker presence, artifact presence, and manifest entries.
// A missing manifest is reported rather than returned as an error.
func (runner *Runner) Status(_ context.Context) (StatusReport, error) {
	run := runner.startRun(targetStatusConstant)
	layout := runner.inspector.Layout()
	report := StatusReport{
		RunID:  run.runID,
		Root:   layout.Root,
		Marker: layout.MarkerPath(),
		Checks: runner.Checks(),
	}

	exists, existsError := runner.inspector.Exists()
	if existsError != nil {
		return report, runner.finishRun(run, fmt.Errorf(markerQueryErrorTemplate, existsError))
	}
	report.Provisioned = exists

	artifacts, artifactsError := runner.inspector.Artifacts()
	if artifactsError != nil {
		return report, runner.finishRun(run, fmt.Errorf(artifactsQueryErrorTemplate, artifactsError))
	}
	report.Artifacts = artifacts

	report.ManifestPath = provisioner.ManifestPath(layout, runner.settings.ManifestPath)
	loadedManifest, manifestError := manifest.Load(runner.fileSystem, report.ManifestPath)
	if manifestError != nil {
		if !errors.Is(manifestError, manifest.ErrMissingManifest) {
			return report, runner.finishRun(run, manifestError)
		}
		report.ManifestError = manifestError.Error()
	} else {
		report.Manifest = loadedManifest.Entries
	}

	presentCount := 0
	for _, artifact := range artifacts {
		if artifact.Present() {
			presentCount++
		}
	}
	run.counts[artifactsPresentCountKeyConstant] = presentCount
	run.counts[manifestEntriesCountKeyConstant] = len(report.Manifest)
	return report, runner.finishRun(run, nil)
}

// RenderStatus writes report to writer in the requested format.
func RenderStatus(writer io.Writer, report StatusReport, format StatusFormat) error {
	switch format {
	case StatusFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentWidthConstant)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return fmt.Errorf(statusRenderErrorTemplate, encodeError)
		}
		if closeError := encoder.Close(); closeError != nil {
			return fmt.Errorf(statusRenderErrorTemplate, closeError)
		}
		return nil
	case StatusFormatHuman:
		return renderHumanStatus(writer, report)
	default:
		return fmt.Errorf(statusFormatUnsupportedTemplate, string(format))
	}
}

func renderHumanStatus(writer io.Writer, report StatusReport) error {
	state := humanMissingLabelConstant
	if report.Provisioned {
		state = humanProvisionedLabelConstant
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Environment: %s (%s)\n", report.Root, state)
	fmt.Fprintf(&builder, "Marker: %s\n", report.Marker)
	builder.WriteString("Artifacts:\n")
	for _, artifact := range report.Artifacts {
		fmt.Fprintf(&builder, "  %-12s %s\n", artifact.Name, artifact.Kind)
	}

	fmt.Fprintf(&builder, "Manifest: %s\n", report.ManifestPath)
	if len(report.ManifestError) > 0 {
		fmt.Fprintf(&builder, "  error: %s\n", report.ManifestError)
	}
	for _, entry := range report.Manifest {
		fmt.Fprintf(&builder, "  %s\n", entry.String())
	}

	builder.WriteString("Checks:\n")
	for index, check := range report.Checks {
		fmt.Fprintf(&builder, "  %d. %s: %s\n", index+1, check.Name, check.CommandLine())
	}

	if _, writeError := io.WriteString(writer, builder.String()); writeError != nil {
		return fmt.Errorf(statusRenderErrorTemplate, writeError)
	}
	return nil
}
