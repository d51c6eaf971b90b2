package dto

import (
	"strconv"
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// GradeEntryRequest is one slot of a submitted grade batch. A null score leaves the stored value untouched.
type GradeEntryRequest struct {
	Slot     int      `json:"slot" validate:"required,gte=1"`
	Score    *float64 `json:"score"`
	MaxScore float64  `json:"max_score" validate:"gte=0"`
}

// GradeBatchRequest captures a grader's batch of slot scores for one attempt.
type GradeBatchRequest struct {
	Entries []GradeEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// GradeRecordResponse serializes a reconciliation record.
type GradeRecordResponse struct {
	UsageID      uint      `json:"usage_id"`
	Slot         int       `json:"slot"`
	GradeMain    *float64  `json:"grade_main"`
	GradeSubs    *float64  `json:"grade_subs"`
	GradeHead    *float64  `json:"grade_head"`
	GradeFinal   *float64  `json:"grade_final"`
	FinalMark    string    `json:"final_mark,omitempty"`
	MaxDiff      *float64  `json:"max_diff"`
	Status       string    `json:"status"`
	GraderMainID *uint     `json:"grader_main_id"`
	GraderSubsID *uint     `json:"grader_subs_id"`
	GraderHeadID *uint     `json:"grader_head_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewGradeRecordResponse converts a record into its API representation.
func NewGradeRecordResponse(record models.GradeRecord) GradeRecordResponse {
	response := GradeRecordResponse{
		UsageID:      record.UsageID,
		Slot:         record.Slot,
		GradeMain:    record.GradeMain,
		GradeSubs:    record.GradeSubs,
		GradeHead:    record.GradeHead,
		GradeFinal:   record.GradeFinal,
		MaxDiff:      record.MaxDiff,
		Status:       record.Status,
		GraderMainID: record.GraderMainID,
		GraderSubsID: record.GraderSubsID,
		GraderHeadID: record.GraderHeadID,
		UpdatedAt:    record.UpdatedAt,
	}
	if record.GradeFinal != nil {
		response.FinalMark = FormatMark(*record.GradeFinal)
	}
	return response
}

// FormatMark renders a grade with two decimals, the format the host grading pipeline expects.
func FormatMark(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

// SlotOutcomeResponse reports the new state of one touched slot.
type SlotOutcomeResponse struct {
	GradeRecordResponse
	JustReconciled bool `json:"just_reconciled"`
}

// GradeBatchResponse is returned for a committed batch.
type GradeBatchResponse struct {
	UsageID    uint                  `json:"usage_id"`
	Role       string                `json:"role"`
	Slots      []SlotOutcomeResponse `json:"slots"`
	Reconciled []int                 `json:"reconciled_slots"`
}

// GradeRejectionDetails identifies why and where a batch was rejected.
type GradeRejectionDetails struct {
	Kind string `json:"kind"`
	Slot int    `json:"slot,omitempty"`
}

// RegisterAttemptRequest mirrors a host attempt so grades can be validated against it.
type RegisterAttemptRequest struct {
	UsageID   uint `json:"usage_id" validate:"required"`
	QuizID    uint `json:"quiz_id" validate:"required"`
	UserID    uint `json:"user_id" validate:"required"`
	SlotCount int  `json:"slot_count" validate:"required,gte=1"`
}

// QuizAttemptResponse serializes a mirrored attempt.
type QuizAttemptResponse struct {
	UsageID   uint `json:"usage_id"`
	QuizID    uint `json:"quiz_id"`
	UserID    uint `json:"user_id"`
	SlotCount int  `json:"slot_count"`
}

// NewQuizAttemptResponse converts an attempt model into a DTO.
func NewQuizAttemptResponse(attempt models.QuizAttempt) QuizAttemptResponse {
	return QuizAttemptResponse{
		UsageID:   attempt.UsageID,
		QuizID:    attempt.QuizID,
		UserID:    attempt.UserID,
		SlotCount: attempt.SlotCount,
	}
}

// GradeTotals sums each grading column; a nil total means no slot carries that column.
type GradeTotals struct {
	Main  *float64 `json:"main"`
	Subs  *float64 `json:"subs"`
	Head  *float64 `json:"head"`
	Final *float64 `json:"final"`
}

// AttemptReportResponse is the grading dashboard view of one attempt.
type AttemptReportResponse struct {
	Attempt     QuizAttemptResponse   `json:"attempt"`
	Status      string                `json:"status"`
	Graded      int                   `json:"graded_slots"`
	Reconciled  int                   `json:"reconciled_slots"`
	Totals      GradeTotals           `json:"totals"`
	Records     []GradeRecordResponse `json:"records"`
	GeneratedAt time.Time             `json:"generated_at"`
	CacheHit    bool                  `json:"cache_hit"`
}

// QuizOverviewItem is one attempt row of the quiz grading overview.
type QuizOverviewItem struct {
	UsageID    uint        `json:"usage_id"`
	UserID     uint        `json:"user_id"`
	SlotCount  int         `json:"slot_count"`
	Graded     int         `json:"graded_slots"`
	Reconciled int         `json:"reconciled_slots"`
	Status     string      `json:"status"`
	Totals     GradeTotals `json:"totals"`
}

// QuizOverviewResponse lists attempts of a quiz with their grading status.
type QuizOverviewResponse struct {
	QuizID   uint               `json:"quiz_id"`
	Filter   string             `json:"filter"`
	Statuses map[string]int     `json:"statuses"`
	Items    []QuizOverviewItem `json:"items"`
}

// UpdateMaxDiffRequest changes the reconciliation tolerance.
type UpdateMaxDiffRequest struct {
	MaxDiff *float64 `json:"max_diff" validate:"required,gte=0"`
}

// GradingSettingsResponse exposes the active grading options.
type GradingSettingsResponse struct {
	MaxDiff   float64    `json:"max_diff"`
	Default   bool       `json:"default"`
	UpdatedBy *uint      `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewGradingSettingsResponse converts a stored setting into a DTO.
func NewGradingSettingsResponse(setting models.GradingSetting) GradingSettingsResponse {
	updatedBy := setting.UpdatedBy
	updatedAt := setting.UpdatedAt
	return GradingSettingsResponse{
		MaxDiff:   setting.Value,
		UpdatedBy: &updatedBy,
		UpdatedAt: &updatedAt,
	}
}
