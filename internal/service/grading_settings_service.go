package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// GradingSettingsService manages the reconciliation tolerance.
type GradingSettingsService interface {
	MaxDiffSource
	Get(ctx context.Context) (dto.GradingSettingsResponse, error)
	UpdateMaxDiff(ctx context.Context, payload dto.UpdateMaxDiffRequest, actor ActivityActor) (dto.GradingSettingsResponse, error)
}

type gradingSettingsService struct {
	repo           repository.GradingSettingRepository
	defaultMaxDiff float64
	validator      *validator.Validate
	activity       ActivityRecorder
	logger         zerolog.Logger
	now            func() time.Time
}

// NewGradingSettingsService constructs the settings service. defaultMaxDiff applies until an administrator stores a value.
func NewGradingSettingsService(repo repository.GradingSettingRepository, defaultMaxDiff float64, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) GradingSettingsService {
	return &gradingSettingsService{
		repo:           repo,
		defaultMaxDiff: defaultMaxDiff,
		validator:      validator,
		activity:       activity,
		logger:         logger.With().Str("component", "grading_settings_service").Logger(),
		now:            time.Now,
	}
}

// MaxDiff reads the stored tolerance on every call so administrator changes apply to the next batch.
func (s *gradingSettingsService) MaxDiff(ctx context.Context) (float64, error) {
	setting, found, err := s.repo.Get(ctx, models.SettingMaxDiff)
	if err != nil {
		return 0, err
	}
	if !found {
		return s.defaultMaxDiff, nil
	}
	return setting.Value, nil
}

func (s *gradingSettingsService) Get(ctx context.Context) (dto.GradingSettingsResponse, error) {
	setting, found, err := s.repo.Get(ctx, models.SettingMaxDiff)
	if err != nil {
		return dto.GradingSettingsResponse{}, err
	}
	if !found {
		return dto.GradingSettingsResponse{MaxDiff: s.defaultMaxDiff, Default: true}, nil
	}
	return dto.NewGradingSettingsResponse(setting), nil
}

func (s *gradingSettingsService) UpdateMaxDiff(ctx context.Context, payload dto.UpdateMaxDiffRequest, actor ActivityActor) (dto.GradingSettingsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradingSettingsResponse{}, err
	}

	setting := models.GradingSetting{
		Key:       models.SettingMaxDiff,
		Value:     *payload.MaxDiff,
		UpdatedBy: actor.ID,
		UpdatedAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, &setting); err != nil {
		return dto.GradingSettingsResponse{}, err
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Action:        "grading.max_diff_updated",
			EntityType:    "grading_setting",
			CorrelationID: actor.CorrelationID,
			Metadata:      map[string]interface{}{"max_diff": setting.Value},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to audit max diff update")
		}
	}

	s.logger.Info().Float64("max_diff", setting.Value).Uint("actor_id", actor.ID).Msg("max diff updated")
	return dto.NewGradingSettingsResponse(setting), nil
}
