package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

type fixedEssayGrader struct{}

func (fixedEssayGrader) GradeEssay(ctx context.Context, input ai.EssayInput) (ai.EssayGrade, error) {
	return ai.EssayGrade{Score: input.MaxScore / 2, Percent: 50, Feedback: "Half credit", Model: "stub"}, nil
}

func TestEssaySuggestionHandlerSuggestsAndLimits(t *testing.T) {
	env := setupGradingApp(t)
	require.NoError(t, env.db.AutoMigrate(&models.EssaySuggestion{}))

	logger := zerolog.Nop()
	svc := service.NewEssaySuggestionService(
		repository.NewEssaySuggestionRepository(env.db),
		repository.NewQuizAttemptRepository(env.db),
		fixedEssayGrader{},
		validator.New(validator.WithRequiredStructEnabled()),
		nil,
		logger,
	)
	handler.NewEssaySuggestionHandler(svc, 2, time.Minute, logger).Register(env.app.Group("/api/v2/grading"))

	payload := map[string]interface{}{"question": "Explain goroutines", "answer": "Lightweight threads", "max_score": 10}
	path := "/api/v2/grading/attempts/100/slots/1/suggestion"

	resp, _ := env.do(t, caller{id: "30", role: "teacher"}, http.MethodPost, path, payload)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, mainGrader, http.MethodPost, path, payload)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, string(body.Data), `"score":5`)

	resp, _ = env.do(t, mainGrader, http.MethodPost, "/api/v2/grading/attempts/100/slots/9/suggestion", payload)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, mainGrader, http.MethodPost, path, payload)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, body = env.do(t, mainGrader, http.MethodGet, "/api/v2/grading/attempts/100/suggestions", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, string(body.Data), "Half credit")
}
