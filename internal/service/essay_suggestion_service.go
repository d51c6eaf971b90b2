package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

// ErrEssayGraderUnavailable indicates no AI provider is configured.
var ErrEssayGraderUnavailable = errors.New("essay grader unavailable")

// EssaySuggestionService asks the AI model for grade proposals on essay slots.
type EssaySuggestionService interface {
	Suggest(ctx context.Context, usageID uint, slot int, payload dto.EssaySuggestionRequest, actor ActivityActor) (dto.EssaySuggestionResponse, error)
	List(ctx context.Context, usageID uint) ([]dto.EssaySuggestionResponse, error)
}

type essaySuggestionService struct {
	repo      repository.EssaySuggestionRepository
	attempts  repository.QuizAttemptRepository
	grader    ai.EssayGrader
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewEssaySuggestionService constructs the suggestion service. grader may be nil when AI is disabled.
func NewEssaySuggestionService(repo repository.EssaySuggestionRepository, attempts repository.QuizAttemptRepository, grader ai.EssayGrader, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) EssaySuggestionService {
	return &essaySuggestionService{
		repo:      repo,
		attempts:  attempts,
		grader:    grader,
		validator: validator,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		logger:    logger.With().Str("component", "essay_suggestion_service").Logger(),
	}
}

func (s *essaySuggestionService) Suggest(ctx context.Context, usageID uint, slot int, payload dto.EssaySuggestionRequest, actor ActivityActor) (dto.EssaySuggestionResponse, error) {
	if s.grader == nil {
		return dto.EssaySuggestionResponse{}, ErrEssayGraderUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.EssaySuggestionResponse{}, err
	}

	attempt, err := s.attempts.GetByUsage(ctx, usageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EssaySuggestionResponse{}, notFoundError(0, "usage %d is not a known attempt", usageID)
		}
		return dto.EssaySuggestionResponse{}, err
	}
	if !attempt.HasSlot(slot) {
		return dto.EssaySuggestionResponse{}, notFoundError(slot, "attempt %d has %d slots", usageID, attempt.SlotCount)
	}

	grade, err := s.grader.GradeEssay(ctx, ai.EssayInput{
		Question: strings.TrimSpace(payload.Question),
		Answer:   strings.TrimSpace(s.sanitizer.Sanitize(payload.Answer)),
		MaxScore: payload.MaxScore,
		Rubric:   strings.TrimSpace(payload.Rubric),
	})
	if err != nil {
		return dto.EssaySuggestionResponse{}, err
	}

	score := grade.Score
	if score > payload.MaxScore {
		score = payload.MaxScore
	}
	if score < 0 {
		score = 0
	}

	suggestion := models.EssaySuggestion{
		UsageID:     usageID,
		Slot:        slot,
		RequestedBy: actor.ID,
		Model:       grade.Model,
		Score:       score,
		MaxScore:    payload.MaxScore,
		Feedback:    strings.TrimSpace(s.sanitizer.Sanitize(grade.Feedback)),
		Details:     toJSONMap(grade.Details),
	}
	if err := s.repo.Upsert(ctx, &suggestion); err != nil {
		return dto.EssaySuggestionResponse{}, err
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Action:        "grading.essay_suggested",
			EntityType:    "quiz_attempt",
			EntityID:      &usageID,
			CorrelationID: actor.CorrelationID,
			Metadata: map[string]interface{}{
				"slot":  slot,
				"score": score,
				"model": grade.Model,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to audit essay suggestion")
		}
	}

	return dto.NewEssaySuggestionResponse(suggestion), nil
}

func (s *essaySuggestionService) List(ctx context.Context, usageID uint) ([]dto.EssaySuggestionResponse, error) {
	suggestions, err := s.repo.ListByUsage(ctx, usageID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EssaySuggestionResponse, 0, len(suggestions))
	for _, suggestion := range suggestions {
		responses = append(responses, dto.NewEssaySuggestionResponse(suggestion))
	}
	return responses, nil
}
