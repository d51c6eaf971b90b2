package ai

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const essayGradeSchemaURL = "essay_grade.schema.json"

const essayGradeSchemaSource = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["score", "feedback"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "feedback": {"type": "string"},
    "details": {"type": "object"}
  }
}`

var essayGradeSchema = jsonschema.MustCompileString(essayGradeSchemaURL, essayGradeSchemaSource)

type essayGradePayload struct {
	Score    float64                `json:"score"`
	Feedback string                 `json:"feedback"`
	Details  map[string]interface{} `json:"details"`
}

func parseEssayGrade(content string) (essayGradePayload, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return essayGradePayload{}, fmt.Errorf("parse essay grade json: %w", err)
	}
	if err := essayGradeSchema.Validate(document); err != nil {
		return essayGradePayload{}, fmt.Errorf("essay grade does not match schema: %w", err)
	}

	var payload essayGradePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return essayGradePayload{}, fmt.Errorf("decode essay grade: %w", err)
	}
	return payload, nil
}
