package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var request map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Equal(t, "gpt-4o-mini", request["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]interface{}{"role": "assistant", "content": content},
				},
			},
			"usage": map[string]interface{}{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
}

func TestOpenAIEssayGraderScalesScore(t *testing.T) {
	server := newChatServer(t, `{"score": 80, "feedback": "  Clear argument. ", "details": {"structure": "good"}}`)
	defer server.Close()

	grader, err := NewOpenAIEssayGrader(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	grade, err := grader.GradeEssay(context.Background(), EssayInput{Question: "Explain TCP", Answer: "It is reliable", MaxScore: 25})
	require.NoError(t, err)
	require.Equal(t, 20.0, grade.Score)
	require.Equal(t, 80.0, grade.Percent)
	require.Equal(t, "Clear argument.", grade.Feedback)
	require.Equal(t, "gpt-4o-mini", grade.Model)
	require.Equal(t, "good", grade.Details["structure"])
	require.Contains(t, grade.Details, "usage")
}

func TestOpenAIEssayGraderRejectsOutOfSchemaResponse(t *testing.T) {
	server := newChatServer(t, `{"score": 140, "feedback": "too generous"}`)
	defer server.Close()

	grader, err := NewOpenAIEssayGrader(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = grader.GradeEssay(context.Background(), EssayInput{Question: "Q", Answer: "A", MaxScore: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}

func TestNewOpenAIEssayGraderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEssayGrader(OpenAIConfig{})
	require.Error(t, err)
}

func TestParseEssayGrade(t *testing.T) {
	payload, err := parseEssayGrade(`{"score": 55.5, "feedback": "ok"}`)
	require.NoError(t, err)
	require.Equal(t, 55.5, payload.Score)

	_, err = parseEssayGrade(`{"feedback": "missing score"}`)
	require.Error(t, err)

	_, err = parseEssayGrade(`not json`)
	require.Error(t, err)
}

func TestScaleScore(t *testing.T) {
	require.Equal(t, 7.5, scaleScore(75, 10))
	require.Equal(t, 33.33, scaleScore(33.333, 100))
	require.Equal(t, 0.0, scaleScore(90, 0))
}
