package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// GradingService runs grade batches through the engine and hands the outcome to the downstream collaborators.
type GradingService interface {
	Submit(ctx context.Context, grader Grader, usageID uint, payload dto.GradeBatchRequest, actor ActivityActor) (dto.GradeBatchResponse, error)
	RegisterAttempt(ctx context.Context, payload dto.RegisterAttemptRequest, actor ActivityActor) (dto.QuizAttemptResponse, error)
}

type gradingService struct {
	engine    ReconciliationEngine
	attempts  repository.QuizAttemptRepository
	reports   GradingReportService
	forwarder GradeForwarder
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradingService wires the engine with its collaborators. reports, forwarder and activity may be nil.
func NewGradingService(engine ReconciliationEngine, attempts repository.QuizAttemptRepository, reports GradingReportService, forwarder GradeForwarder, activity ActivityRecorder, validator *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		engine:    engine,
		attempts:  attempts,
		reports:   reports,
		forwarder: forwarder,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "grading_service").Logger(),
	}
}

func (s *gradingService) Submit(ctx context.Context, grader Grader, usageID uint, payload dto.GradeBatchRequest, actor ActivityActor) (dto.GradeBatchResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		observability.GradingBatches().WithLabelValues(string(grader.Role), "invalid_payload").Inc()
		return dto.GradeBatchResponse{}, err
	}

	batch := GradeBatch{
		Grader:  grader,
		UsageID: usageID,
		Entries: make([]GradeEntry, 0, len(payload.Entries)),
	}
	for _, entry := range payload.Entries {
		batch.Entries = append(batch.Entries, GradeEntry{
			Slot:     entry.Slot,
			Score:    entry.Score,
			MaxScore: entry.MaxScore,
		})
	}

	result, err := s.engine.SubmitBatch(ctx, batch)
	if err != nil {
		outcome := "error"
		var gradingErr *GradingError
		if errors.As(err, &gradingErr) {
			outcome = gradingErr.KindName()
		}
		observability.GradingBatches().WithLabelValues(string(grader.Role), outcome).Inc()
		return dto.GradeBatchResponse{}, err
	}

	reconciled := result.Reconciled()
	observability.GradingBatches().WithLabelValues(string(grader.Role), "committed").Inc()
	observability.SlotsReconciled().WithLabelValues(string(grader.Role)).Add(float64(len(reconciled)))

	if s.reports != nil {
		s.reports.Invalidate(ctx, usageID)
	}

	if s.forwarder != nil && len(reconciled) > 0 {
		if err := s.forwarder.Forward(ctx, grader, usageID, reconciled); err != nil {
			s.logger.Warn().Err(err).Uint("usage_id", usageID).Msg("reconciled grades committed but not forwarded")
		}
	}

	response := newGradeBatchResponse(result)
	s.audit(ctx, actor, result, response.Reconciled)

	return response, nil
}

func (s *gradingService) RegisterAttempt(ctx context.Context, payload dto.RegisterAttemptRequest, actor ActivityActor) (dto.QuizAttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	attempt := models.QuizAttempt{
		UsageID:   payload.UsageID,
		QuizID:    payload.QuizID,
		UserID:    payload.UserID,
		SlotCount: payload.SlotCount,
	}
	if err := s.attempts.Upsert(ctx, &attempt); err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	if s.reports != nil {
		s.reports.Invalidate(ctx, attempt.UsageID)
	}

	if s.activity != nil {
		usageID := attempt.UsageID
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Action:        "grading.attempt_registered",
			EntityType:    "quiz_attempt",
			EntityID:      &usageID,
			CorrelationID: actor.CorrelationID,
			Metadata: map[string]interface{}{
				"quiz_id":    attempt.QuizID,
				"slot_count": attempt.SlotCount,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to audit attempt registration")
		}
	}

	return dto.NewQuizAttemptResponse(attempt), nil
}

func (s *gradingService) audit(ctx context.Context, actor ActivityActor, result BatchResult, reconciled []int) {
	if s.activity == nil {
		return
	}

	slots := make([]int, 0, len(result.Outcomes))
	scores := make(map[string]float64, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		slots = append(slots, outcome.Record.Slot)
		if score := outcome.Record.Score(result.Grader.Role); score != nil {
			scores[strconv.Itoa(outcome.Record.Slot)] = *score
		}
	}

	usageID := result.UsageID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Action:        "grading.batch_submitted",
		EntityType:    "quiz_attempt",
		EntityID:      &usageID,
		CorrelationID: actor.CorrelationID,
		Metadata: map[string]interface{}{
			"grader_role":      string(result.Grader.Role),
			"slots":            slots,
			"scores":           scores,
			"reconciled_slots": reconciled,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("usage_id", usageID).Msg("failed to audit grade batch")
	}
}

func newGradeBatchResponse(result BatchResult) dto.GradeBatchResponse {
	response := dto.GradeBatchResponse{
		UsageID:    result.UsageID,
		Role:       string(result.Grader.Role),
		Slots:      make([]dto.SlotOutcomeResponse, 0, len(result.Outcomes)),
		Reconciled: []int{},
	}
	for _, outcome := range result.Outcomes {
		response.Slots = append(response.Slots, dto.SlotOutcomeResponse{
			GradeRecordResponse: dto.NewGradeRecordResponse(outcome.Record),
			JustReconciled:      outcome.JustReconciled,
		})
		if outcome.JustReconciled {
			response.Reconciled = append(response.Reconciled, outcome.Record.Slot)
		}
	}
	return response
}
