package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/venvx/cmd/cli/targets"
)

const (
	defaultOperationNameConstant = "default"
	cleanOperationNameConstant   = "clean"
	testOperationNameConstant    = "test"
	statusOperationNameConstant  = "status"
)

type targetCommandFactory func(builder *targets.CommandBuilder) (*cobra.Command, error)

func (application *Application) registerTargetCommands(cobraCommand *cobra.Command) {
	registrations := []struct {
		operationName string
		factory       targetCommandFactory
	}{
		{operationName: defaultOperationNameConstant, factory: (*targets.CommandBuilder).BuildDefault},
		{operationName: cleanOperationNameConstant, factory: (*targets.CommandBuilder).BuildClean},
		{operationName: testOperationNameConstant, factory: (*targets.CommandBuilder).BuildTest},
		{operationName: statusOperationNameConstant, factory: (*targets.CommandBuilder).BuildStatus},
	}

	for _, registration := range registrations {
		builder := application.newTargetsBuilder(registration.operationName)
		command, buildError := registration.factory(builder)
		if buildError != nil {
			continue
		}
		cobraCommand.AddCommand(command)
	}
}

// newTargetsBuilder binds a target builder to the operation overrides for operationName.
// Logger and configuration are resolved at execution time, after the persistent pre-run loaded them.
func (application *Application) newTargetsBuilder(operationName string) *targets.CommandBuilder {
	return &targets.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() targets.Configuration {
			return application.targetConfiguration(operationName)
		},
		FileSystem:             application.targetDependencies.FileSystem,
		CommandRunner:          application.targetDependencies.CommandRunner,
		RuntimeLocator:         application.targetDependencies.RuntimeLocator,
		VariablesProvider:      application.targetDependencies.VariablesProvider,
		RunIdentifierGenerator: application.targetDependencies.RunIdentifierGenerator,
	}
}
