package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
)

func submitCmd(services func() (Services, error)) *cobra.Command {
	var (
		role     string
		graderID uint
		usageID  uint
		entries  []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a batch of grades as one grader",
		Long: `Submit scores for one attempt. Every entry is slot:score:max; use "-" as the
score to leave a slot untouched. The batch is applied atomically: one rejected
entry rejects them all.

Examples:
  gradectl submit --role main --grader 11 --usage 1042 --entry 1:78:100
  gradectl submit --role head --grader 3 --usage 1042 --entry 1:90:100 --entry 2:-:50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			graderRole := models.GraderRole(strings.ToLower(strings.TrimSpace(role)))
			if !graderRole.Valid() {
				return fmt.Errorf("--role must be one of main, subs, head")
			}

			request := dto.GradeBatchRequest{Entries: make([]dto.GradeEntryRequest, 0, len(entries))}
			for _, raw := range entries {
				entry, err := parseEntry(raw)
				if err != nil {
					return err
				}
				request.Entries = append(request.Entries, entry)
			}

			svc, err := services()
			if err != nil {
				return err
			}

			response, err := svc.Grading.Submit(
				context.Background(),
				service.Grader{ID: graderID, Role: graderRole},
				usageID,
				request,
				operatorActor(graderID),
			)
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			for _, slot := range response.Slots {
				marker := ""
				if slot.JustReconciled {
					marker = color.New(color.FgHiMagenta).Sprint(" ← forwarded")
				}
				fmt.Fprintf(out, "slot %d: %s final=%s%s\n", slot.Slot, recordStatusLabel(slot.Status), formatScore(slot.GradeFinal), marker)
			}
			fmt.Fprintf(out, "%s %d slot(s) saved, %d reconciled\n", color.New(color.FgGreen).Sprint("✓"), len(response.Slots), len(response.Reconciled))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "grader role: main, subs or head")
	cmd.Flags().UintVar(&graderID, "grader", 0, "grader user id")
	cmd.Flags().UintVar(&usageID, "usage", 0, "attempt usage id")
	cmd.Flags().StringArrayVar(&entries, "entry", nil, "slot:score:max, repeatable")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("grader")
	_ = cmd.MarkFlagRequired("usage")
	_ = cmd.MarkFlagRequired("entry")

	return cmd
}

func parseEntry(raw string) (dto.GradeEntryRequest, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 3 {
		return dto.GradeEntryRequest{}, fmt.Errorf("entry %q must be slot:score:max", raw)
	}

	slot, err := strconv.Atoi(parts[0])
	if err != nil {
		return dto.GradeEntryRequest{}, fmt.Errorf("entry %q: invalid slot", raw)
	}
	maxScore, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return dto.GradeEntryRequest{}, fmt.Errorf("entry %q: invalid max score", raw)
	}

	entry := dto.GradeEntryRequest{Slot: slot, MaxScore: maxScore}
	if parts[1] != "-" && parts[1] != "" {
		score, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return dto.GradeEntryRequest{}, fmt.Errorf("entry %q: invalid score", raw)
		}
		entry.Score = &score
	}
	return entry, nil
}

// describe renders typed grading rejections with their kind and slot.
func describe(err error) error {
	var gradingErr *service.GradingError
	if errors.As(err, &gradingErr) {
		return fmt.Errorf("%s: %w", color.New(color.FgRed).Sprint(gradingErr.KindName()), err)
	}
	return err
}
