// Package cli implements gradectl, the operator console for the grading service.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grading-api/internal/service"
)

// Services are the grading operations the console drives.
type Services struct {
	Grading  service.GradingService
	Reports  service.GradingReportService
	Settings service.GradingSettingsService
}

// operatorActor is recorded in the audit trail for console actions.
func operatorActor(id uint) service.ActivityActor {
	return service.ActivityActor{ID: id, Role: "operator", CorrelationID: "gradectl"}
}

// RootCmd builds the gradectl command tree. services is resolved lazily so --help works offline.
func RootCmd(services func() (Services, error)) *cobra.Command {
	root := &cobra.Command{
		Use:   "gradectl",
		Short: "Operate the GEMA grade reconciliation engine",
		Long: `gradectl inspects and drives grade reconciliation from the command line.

Each question slot is scored independently by a main and a substitute grader.
When both scores are within max_diff of each other the final grade is their
average. A head grader score always wins and locks the slot.`,
		SilenceUsage: true,
	}

	root.AddCommand(recordsCmd(services))
	root.AddCommand(submitCmd(services))
	root.AddCommand(maxDiffCmd(services))
	root.AddCommand(registerCmd(services))

	return root
}
