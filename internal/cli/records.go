package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
)

func recordsCmd(services func() (Services, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "records <usage-id>",
		Short: "Show the reconciliation records of an attempt",
		Long: `Display every graded slot of an attempt with the three independent scores,
the captured tolerance and the final grade.

Examples:
  gradectl records 1042`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			usageID, err := parseUint(args[0])
			if err != nil {
				return fmt.Errorf("invalid usage id %q", args[0])
			}

			svc, err := services()
			if err != nil {
				return err
			}

			report, err := svc.Reports.AttemptReport(context.Background(), usageID)
			if err != nil {
				return describe(err)
			}

			displayReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func displayReport(out io.Writer, report dto.AttemptReportResponse) {
	fmt.Fprintf(out, "Attempt %d (quiz %d, user %d): %s, %d/%d slots reconciled\n\n",
		report.Attempt.UsageID, report.Attempt.QuizID, report.Attempt.UserID,
		attemptStatusLabel(report.Status), report.Reconciled, report.Attempt.SlotCount)

	if len(report.Records) == 0 {
		fmt.Fprintln(out, "No grades recorded yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tMAIN\tSUBS\tHEAD\tMAX DIFF\tFINAL\tSTATUS")
	for _, record := range report.Records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			record.Slot,
			formatScore(record.GradeMain),
			formatScore(record.GradeSubs),
			formatScore(record.GradeHead),
			formatScore(record.MaxDiff),
			formatScore(record.GradeFinal),
			recordStatusLabel(record.Status),
		)
	}
	_ = w.Flush()
}

func formatScore(value *float64) string {
	if value == nil {
		return "-"
	}
	return dto.FormatMark(*value)
}

func recordStatusLabel(status string) string {
	if status == models.GradeStatusReconciled {
		return color.New(color.FgGreen).Sprint(status)
	}
	return color.New(color.FgYellow).Sprint(status)
}

func attemptStatusLabel(status string) string {
	switch status {
	case service.AttemptStatusFinal:
		return color.New(color.FgGreen).Sprint(status)
	case service.AttemptStatusNeedsGrading:
		return color.New(color.FgRed).Sprint(status)
	case service.AttemptStatusNeedsHead:
		return color.New(color.FgMagenta).Sprint(status)
	default:
		return color.New(color.FgYellow).Sprint(status)
	}
}

func parseUint(value string) (uint, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid identifier")
	}
	return uint(parsed), nil
}
