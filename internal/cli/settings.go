package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grading-api/internal/dto"
)

func maxDiffCmd(services func() (Services, error)) *cobra.Command {
	var actorID uint

	cmd := &cobra.Command{
		Use:   "max-diff [value]",
		Short: "Show or change the reconciliation tolerance",
		Long: `Without an argument prints the active max_diff. With a value stores it;
slots that already captured a tolerance keep theirs.

Examples:
  gradectl max-diff
  gradectl max-diff 5 --actor 1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := services()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				settings, err := svc.Settings.Get(context.Background())
				if err != nil {
					return err
				}
				source := "stored"
				if settings.Default {
					source = "default"
				}
				fmt.Fprintf(out, "max_diff = %s (%s)\n", dto.FormatMark(settings.MaxDiff), source)
				return nil
			}

			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid max diff %q", args[0])
			}
			settings, err := svc.Settings.UpdateMaxDiff(context.Background(), dto.UpdateMaxDiffRequest{MaxDiff: &value}, operatorActor(actorID))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "max_diff set to %s\n", dto.FormatMark(settings.MaxDiff))
			return nil
		},
	}

	cmd.Flags().UintVar(&actorID, "actor", 0, "user id recorded in the audit trail")
	return cmd
}

func registerCmd(services func() (Services, error)) *cobra.Command {
	var request dto.RegisterAttemptRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a quiz attempt so it can be graded",
		Long: `Mirror a host quiz attempt so its slots can be graded.

Examples:
  gradectl register --usage 1042 --quiz 7 --user 55 --slots 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := services()
			if err != nil {
				return err
			}
			attempt, err := svc.Grading.RegisterAttempt(context.Background(), request, operatorActor(0))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempt %d registered with %d slot(s)\n", attempt.UsageID, attempt.SlotCount)
			return nil
		},
	}

	cmd.Flags().UintVar(&request.UsageID, "usage", 0, "attempt usage id")
	cmd.Flags().UintVar(&request.QuizID, "quiz", 0, "quiz id")
	cmd.Flags().UintVar(&request.UserID, "user", 0, "student user id")
	cmd.Flags().IntVar(&request.SlotCount, "slots", 0, "number of question slots")
	return cmd
}
