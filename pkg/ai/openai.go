package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	essayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "essay_grading_duration_seconds",
		Help:      "Duration of AI essay grading requests",
	}, []string{"model"})

	essayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "essay_grading_failures_total",
		Help:      "Number of AI essay grading failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI essay grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEssayGrader implements EssayGrader against the OpenAI chat completion API.
type OpenAIEssayGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEssayGrader builds a grader using the provided configuration.
func NewOpenAIEssayGrader(cfg OpenAIConfig) (*OpenAIEssayGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIEssayGrader{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grading-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_essay_grader").Logger(),
	}, nil
}

// Model returns the chat model used for grading.
func (g *OpenAIEssayGrader) Model() string {
	return g.cfg.Model
}

// GradeEssay asks the model for a 0-100 grade and scales it to the question's max score.
func (g *OpenAIEssayGrader) GradeEssay(parent context.Context, input EssayInput) (EssayGrade, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade_essay", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: graderSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildEssayPrompt(input)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	essayDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return EssayGrade{}, g.fail(span, fmt.Errorf("openai grade essay: %w", err))
	}
	if len(resp.Choices) == 0 {
		return EssayGrade{}, g.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	payload, err := parseEssayGrade(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return EssayGrade{}, g.fail(span, err)
	}

	details := payload.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	details["usage"] = map[string]interface{}{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}

	return EssayGrade{
		Score:    scaleScore(payload.Score, input.MaxScore),
		Percent:  payload.Score,
		Feedback: strings.TrimSpace(payload.Feedback),
		Model:    g.cfg.Model,
		Details:  details,
	}, nil
}

func (g *OpenAIEssayGrader) fail(span trace.Span, err error) error {
	essayFailures.WithLabelValues(g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Warn().Err(err).Msg("essay grading failed")
	return err
}

func graderSystemPrompt() string {
	return "You are a helpful assistant that grades essay answers. Respond with a JSON object containing score " +
		"(number from 0 to 100), feedback (short paragraph for the student) and an optional details object."
}

func buildEssayPrompt(input EssayInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(input.Question)
	builder.WriteString("\n\n## Answer\n")
	builder.WriteString(input.Answer)
	if input.Rubric != "" {
		builder.WriteString("\n\n## Rubric\n")
		builder.WriteString(input.Rubric)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func scaleScore(percent, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return math.Round(percent*maxScore) / 100
}
