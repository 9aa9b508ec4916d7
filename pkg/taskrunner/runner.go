package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/venvx/internal/environment"
	"github.com/tyemirov/venvx/internal/execshell"
	"github.com/tyemirov/venvx/internal/provisioner"
)

const (
	targetDefaultConstant = "default"
	targetCleanConstant   = "clean"
	targetTestConstant    = "test"
	targetStatusConstant  = "status"

	inspectorMissingMessageConstant   = "task runner environment inspector not configured"
	provisionerMissingMessageConstant = "task runner provisioner not configured"
	executorMissingMessageConstant    = "task runner command executor not configured"
	fileSystemMissingMessageConstant  = "task runner file system not configured"
	markerQueryErrorTemplate          = "unable to determine environment state: %w"
	cleanErrorTemplate                = "unable to clean environment: %w"
	checksInvalidTemplate             = "invalid check configuration: %w"
	variablesLoadErrorTemplate        = "unable to load activation variables: %w"

	targetStartedMessageConstant        = "target started"
	targetFinishedMessageConstant       = "target finished"
	environmentPresentMessageConstant   = "environment present, provisioning skipped"
	environmentProvisionedMessage       = "environment provisioned"
	environmentRemovedMessageConstant   = "environment removed"
	checkStartedMessageConstant         = "check started"
	checkPassedMessageConstant          = "check passed"
	checkFailedMessageConstant          = "check failed"
	humanEnvironmentPresentTemplate     = "Environment already provisioned at %s"
	humanEnvironmentProvisionedTemplate = "Provisioned environment at %s from %s"
	humanEnvironmentRemovedTemplate     = "Removed %d environment artifacts from %s"
	humanCheckPassedTemplate            = "Check %s passed"
	humanCheckFailedTemplate            = "Check %s failed"

	runIDFieldNameConstant     = "run_id"
	targetFieldNameConstant    = "target"
	rootFieldNameConstant      = "root"
	manifestFieldNameConstant  = "manifest"
	checkFieldNameConstant     = "check"
	removedFieldNameConstant   = "removed"
	absentFieldNameConstant    = "absent"
	activatedFieldNameConstant = "activated"
	durationFieldNameConstant  = "duration"

	checksRunCountKeyConstant        = "checks.run"
	checksPassedCountKeyConstant     = "checks.passed"
	artifactsRemovedCountKeyConstant = "artifacts.removed"
	artifactsAbsentCountKeyConstant  = "artifacts.absent"
	artifactsPresentCountKeyConstant = "artifacts.present"
	manifestEntriesCountKeyConstant  = "manifest.entries"
	provisionedCountKeyConstant      = "environment.provisioned"
)

var (
	// ErrInspectorNotConfigured indicates the environment inspector dependency was missing.
	ErrInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)
	// ErrProvisionerNotConfigured indicates the provisioner dependency was missing.
	ErrProvisionerNotConfigured = errors.New(provisionerMissingMessageConstant)
	// ErrExecutorNotConfigured indicates the command executor dependency was missing.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrFileSystemNotConfigured indicates the file system dependency was missing.
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
)

// EnvironmentInspector answers state queries about the environment tree.
type EnvironmentInspector interface {
	Layout() environment.Layout
	Exists() (bool, error)
	Artifacts() ([]environment.ArtifactStatus, error)
	Remove() (environment.RemovalReport, error)
}

// Provisioner creates environments.
type Provisioner interface {
	Provision(executionContext context.Context, options provisioner.Options) (provisioner.Result, error)
}

// CommandExecutor runs the check commands.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Dependencies enumerates collaborators required by the runner.
type Dependencies struct {
	FileSystem             afero.Fs
	Inspector              EnvironmentInspector
	Provisioner            Provisioner
	Executor               CommandExecutor
	Logger                 *zap.Logger
	HumanReadableLogging   bool
	Output                 io.Writer
	Errors                 io.Writer
	RunIdentifierGenerator func() string
	Clock                  func() time.Time
}

// Settings configure the targets.
type Settings struct {
	RuntimeName           string
	ManifestPath          string
	UpgradeInstaller      bool
	VariablesFile         string
	VariablesFileRequired bool
	BaseVariables         map[string]string
	Checks                []CheckDefinition
	DisableSummary        bool
}

// DefaultAction reports what the default target did.
type DefaultAction string

const (
	// DefaultActionProvisioned indicates a fresh environment was created.
	DefaultActionProvisioned DefaultAction = "provisioned"
	// DefaultActionSkipped indicates the marker was present and nothing ran.
	DefaultActionSkipped DefaultAction = "skipped"
)

// DefaultOutcome captures the result of the default target.
type DefaultOutcome struct {
	Action DefaultAction
	Root   string
	RunID  string
}

// CheckResult records one executed check.
type CheckResult struct {
	Name        string `yaml:"name"`
	CommandLine string `yaml:"command"`
	Passed      bool   `yaml:"passed"`
}

// TestReport captures the checks executed by the test target.
type TestReport struct {
	RunID     string        `yaml:"run_id"`
	Activated bool          `yaml:"activated"`
	Results   []CheckResult `yaml:"results"`
}

// Runner executes the venvx targets. It is not safe for concurrent use.
type Runner struct {
	fileSystem             afero.Fs
	inspector              EnvironmentInspector
	provisioner            Provisioner
	executor               CommandExecutor
	logger                 *zap.Logger
	humanReadableLogging   bool
	output                 io.Writer
	errors                 io.Writer
	runIdentifierGenerator func() string
	clock                  func() time.Time
	settings               Settings
}

type targetRun struct {
	target    string
	runID     string
	logger    *zap.Logger
	startedAt time.Time
	counts    map[string]int
}

// NewRunner validates dependencies and check configuration.
func NewRunner(dependencies Dependencies, settings Settings) (*Runner, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if dependencies.Provisioner == nil {
		return nil, ErrProvisionerNotConfigured
	}
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	checks := settings.Checks
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	sanitizedChecks, checksError := SanitizeChecks(checks)
	if checksError != nil {
		return nil, fmt.Errorf(checksInvalidTemplate, checksError)
	}
	settings.Checks = sanitizedChecks

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	output := dependencies.Output
	if output == nil {
		output = io.Discard
	}
	errorOutput := dependencies.Errors
	if errorOutput == nil {
		errorOutput = io.Discard
	}
	runIdentifierGenerator := dependencies.RunIdentifierGenerator
	if runIdentifierGenerator == nil {
		runIdentifierGenerator = uuid.NewString
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Runner{
		fileSystem:             dependencies.FileSystem,
		inspector:              dependencies.Inspector,
		provisioner:            dependencies.Provisioner,
		executor:               dependencies.Executor,
		logger:                 logger,
		humanReadableLogging:   dependencies.HumanReadableLogging,
		output:                 output,
		errors:                 errorOutput,
		runIdentifierGenerator: runIdentifierGenerator,
		clock:                  clock,
		settings:               settings,
	}, nil
}

// Checks returns the sanitized checks in execution order.
func (runner *Runner) Checks() []CheckDefinition {
	return append([]CheckDefinition(nil), runner.settings.Checks...)
}

// Default provisions the environment unless its marker already exists.
func (runner *Runner) Default(executionContext context.Context) (DefaultOutcome, error) {
	run := runner.startRun(targetDefaultConstant)
	layout := runner.inspector.Layout()
	outcome := DefaultOutcome{Root: layout.Root, RunID: run.runID}

	exists, existsError := runner.inspector.Exists()
	if existsError != nil {
		return outcome, runner.finishRun(run, fmt.Errorf(markerQueryErrorTemplate, existsError))
	}
	if exists {
		outcome.Action = DefaultActionSkipped
		runner.logEvent(run, fmt.Sprintf(humanEnvironmentPresentTemplate, layout.Root), environmentPresentMessageConstant, zap.String(rootFieldNameConstant, layout.Root))
		return outcome, runner.finishRun(run, nil)
	}

	extraVariables, variablesError := runner.extraVariables(layout)
	if variablesError != nil {
		return outcome, runner.finishRun(run, variablesError)
	}

	result, provisionError := runner.provisioner.Provision(executionContext, provisioner.Options{
		Layout:           layout,
		RuntimeName:      runner.settings.RuntimeName,
		ManifestPath:     runner.settings.ManifestPath,
		BaseVariables:    runner.settings.BaseVariables,
		ExtraVariables:   extraVariables,
		UpgradeInstaller: runner.settings.UpgradeInstaller,
		StandardOutput:   runner.output,
		StandardError:    runner.errors,
	})
	if provisionError != nil {
		return outcome, runner.finishRun(run, provisionError)
	}

	outcome.Action = DefaultActionProvisioned
	run.counts[provisionedCountKeyConstant] = 1
	runner.logEvent(run,
		fmt.Sprintf(humanEnvironmentProvisionedTemplate, result.Environment.Root(), result.Manifest.Path),
		environmentProvisionedMessage,
		zap.String(rootFieldNameConstant, result.Environment.Root()),
		zap.String(manifestFieldNameConstant, result.Manifest.Path),
	)
	return outcome, runner.finishRun(run, nil)
}

// Clean removes every environment artifact. Running it on a clean tree is a no-op.
func (runner *Runner) Clean(_ context.Context) (environment.RemovalReport, error) {
	run := runner.startRun(targetCleanConstant)
	report, removeError := runner.inspector.Remove()
	if removeError != nil {
		return report, runner.finishRun(run, fmt.Errorf(cleanErrorTemplate, removeError))
	}

	run.counts[artifactsRemovedCountKeyConstant] = len(report.Removed)
	run.counts[artifactsAbsentCountKeyConstant] = len(report.Absent)
	root := runner.inspector.Layout().Root
	runner.logEvent(run,
		fmt.Sprintf(humanEnvironmentRemovedTemplate, len(report.Removed), root),
		environmentRemovedMessageConstant,
		zap.String(rootFieldNameConstant, root),
		zap.Strings(removedFieldNameConstant, report.Removed),
		zap.Strings(absentFieldNameConstant, report.Absent),
	)
	return report, runner.finishRun(run, nil)
}

// Test runs the configured checks in order and stops at the first failure.
// Checks see the activation context when the environment exists.
func (runner *Runner) Test(executionContext context.Context) (TestReport, error) {
	run := runner.startRun(targetTestConstant)
	report := TestReport{RunID: run.runID, Results: []CheckResult{}}
	layout := runner.inspector.Layout()

	exists, existsError := runner.inspector.Exists()
	if existsError != nil {
		return report, runner.finishRun(run, fmt.Errorf(markerQueryErrorTemplate, existsError))
	}

	variables := runner.settings.BaseVariables
	if exists {
		extraVariables, variablesError := runner.extraVariables(layout)
		if variablesError != nil {
			return report, runner.finishRun(run, variablesError)
		}
		variables = environment.Activate(layout, runner.settings.BaseVariables, extraVariables).Variables()
		report.Activated = true
	}

	for _, check := range runner.settings.Checks {
		if contextError := executionContext.Err(); contextError != nil {
			return report, runner.finishRun(run, contextError)
		}

		run.logger.Debug(checkStartedMessageConstant,
			zap.String(checkFieldNameConstant, check.Name),
			zap.Bool(activatedFieldNameConstant, report.Activated),
		)
		run.counts[checksRunCountKeyConstant]++

		_, executionError := runner.executor.Execute(executionContext, execshell.ShellCommand{
			Name: execshell.CommandName(check.Command),
			Details: execshell.CommandDetails{
				Arguments:            check.Arguments,
				WorkingDirectory:     layout.Root,
				EnvironmentVariables: variables,
				StandardOutput:       runner.output,
				StandardError:        runner.errors,
			},
		})
		report.Results = append(report.Results, CheckResult{Name: check.Name, CommandLine: check.CommandLine(), Passed: executionError == nil})
		if executionError != nil {
			runner.logFailure(run, fmt.Sprintf(humanCheckFailedTemplate, check.Name), checkFailedMessageConstant, zap.String(checkFieldNameConstant, check.Name))
			return report, runner.finishRun(run, CheckFailureError{Check: check, Cause: executionError})
		}

		run.counts[checksPassedCountKeyConstant]++
		runner.logEvent(run, fmt.Sprintf(humanCheckPassedTemplate, check.Name), checkPassedMessageConstant, zap.String(checkFieldNameConstant, check.Name))
	}

	return report, runner.finishRun(run, nil)
}

func (runner *Runner) extraVariables(layout environment.Layout) (map[string]string, error) {
	variablesFile := strings.TrimSpace(runner.settings.VariablesFile)
	if len(variablesFile) == 0 {
		return map[string]string{}, nil
	}
	if !filepath.IsAbs(variablesFile) {
		variablesFile = filepath.Join(layout.Root, variablesFile)
	}
	variables, loadError := environment.LoadVariablesFile(runner.fileSystem, variablesFile, runner.settings.VariablesFileRequired)
	if loadError != nil {
		return nil, fmt.Errorf(variablesLoadErrorTemplate, loadError)
	}
	return variables, nil
}

func (runner *Runner) startRun(target string) *targetRun {
	runID := runner.runIdentifierGenerator()
	run := &targetRun{
		target:    target,
		runID:     runID,
		logger:    runner.logger.With(zap.String(runIDFieldNameConstant, runID), zap.String(targetFieldNameConstant, target)),
		startedAt: runner.clock(),
		counts:    map[string]int{},
	}
	run.logger.Debug(targetStartedMessageConstant)
	return run
}

func (runner *Runner) finishRun(run *targetRun, runError error) error {
	duration := runner.clock().Sub(run.startedAt)
	run.logger.Debug(targetFinishedMessageConstant, zap.Duration(durationFieldNameConstant, duration), zap.Error(runError))
	if !runner.settings.DisableSummary {
		summary := RenderSummaryLine(SummaryData{
			Target:   run.target,
			RunID:    run.runID,
			Counts:   run.counts,
			Failed:   runError != nil,
			Duration: duration,
		})
		if len(summary) > 0 {
			fmt.Fprintln(runner.errors, summary)
		}
	}
	return runError
}

func (runner *Runner) logEvent(run *targetRun, humanMessage string, structuredMessage string, fields ...zap.Field) {
	if runner.humanReadableLogging {
		run.logger.Info(humanMessage)
		return
	}
	run.logger.Info(structuredMessage, fields...)
}

func (runner *Runner) logFailure(run *targetRun, humanMessage string, structuredMessage string, fields ...zap.Field) {
	if runner.humanReadableLogging {
		run.logger.Error(humanMessage)
		return
	}
	run.logger.Error(structuredMessage, fields...)
}
