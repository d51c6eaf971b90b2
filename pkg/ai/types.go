package ai

import "context"

// EssayInput contains what the model needs to grade one essay answer.
type EssayInput struct {
	Question string
	Answer   string
	MaxScore float64
	Rubric   string
}

// EssayGrade is the structured grade returned by the model, scaled to the question's max score.
type EssayGrade struct {
	Score    float64                `json:"score"`
	Percent  float64                `json:"percent"`
	Feedback string                 `json:"feedback"`
	Model    string                 `json:"model"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// EssayGrader proposes a grade for an essay answer. Proposals never become final grades on their own.
type EssayGrader interface {
	GradeEssay(ctx context.Context, input EssayInput) (EssayGrade, error)
}
