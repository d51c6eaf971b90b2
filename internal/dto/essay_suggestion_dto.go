package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// EssaySuggestionRequest carries the essay to be graded by the AI model.
type EssaySuggestionRequest struct {
	Question string  `json:"question" validate:"required,min=3,max=10000"`
	Answer   string  `json:"answer" validate:"required,max=20000"`
	MaxScore float64 `json:"max_score" validate:"required,gt=0"`
	Rubric   string  `json:"rubric" validate:"omitempty,max=5000"`
}

// EssaySuggestionResponse serializes an AI-proposed grade.
type EssaySuggestionResponse struct {
	UsageID     uint                   `json:"usage_id"`
	Slot        int                    `json:"slot"`
	Score       float64                `json:"score"`
	MaxScore    float64                `json:"max_score"`
	Feedback    string                 `json:"feedback"`
	Model       string                 `json:"model"`
	Details     map[string]interface{} `json:"details,omitempty"`
	RequestedBy uint                   `json:"requested_by"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewEssaySuggestionResponse converts a suggestion model into a DTO.
func NewEssaySuggestionResponse(model models.EssaySuggestion) EssaySuggestionResponse {
	return EssaySuggestionResponse{
		UsageID:     model.UsageID,
		Slot:        model.Slot,
		Score:       model.Score,
		MaxScore:    model.MaxScore,
		Feedback:    model.Feedback,
		Model:       model.Model,
		Details:     metadataFromJSON(model.Details),
		RequestedBy: model.RequestedBy,
		UpdatedAt:   model.UpdatedAt,
	}
}
