package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// Grader is the caller-resolved identity submitting a batch. The engine trusts the role.
type Grader struct {
	ID   uint
	Role models.GraderRole
}

// GradeEntry is one slot of a batch. A nil Score leaves the stored value untouched.
type GradeEntry struct {
	Slot     int
	Score    *float64
	MaxScore float64
}

// GradeBatch is the input of a single submit call.
type GradeBatch struct {
	Grader  Grader
	UsageID uint
	Entries []GradeEntry
}

// SlotOutcome is the new state of a touched slot.
type SlotOutcome struct {
	Record         models.GradeRecord
	JustReconciled bool
}

// BatchResult lists every slot touched by a committed batch, in first-touched order.
type BatchResult struct {
	UsageID  uint
	Grader   Grader
	Outcomes []SlotOutcome
}

// Reconciled returns the records whose final grade should be forwarded to the host.
func (r BatchResult) Reconciled() []models.GradeRecord {
	records := make([]models.GradeRecord, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		if outcome.JustReconciled {
			records = append(records, outcome.Record)
		}
	}
	return records
}

// MaxDiffSource yields the current reconciliation tolerance.
type MaxDiffSource interface {
	MaxDiff(ctx context.Context) (float64, error)
}

// ReconciliationEngine applies grade batches and recomputes final grades.
type ReconciliationEngine interface {
	SubmitBatch(ctx context.Context, batch GradeBatch) (BatchResult, error)
}

type reconciliationEngine struct {
	records  repository.GradeRecordRepository
	attempts repository.QuizAttemptRepository
	maxDiff  MaxDiffSource
	retries  int
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReconciliationEngine constructs the engine. retries bounds whole-batch retries on storage conflicts.
func NewReconciliationEngine(records repository.GradeRecordRepository, attempts repository.QuizAttemptRepository, maxDiff MaxDiffSource, retries int, logger zerolog.Logger) ReconciliationEngine {
	if retries <= 0 {
		retries = 1
	}
	return &reconciliationEngine{
		records:  records,
		attempts: attempts,
		maxDiff:  maxDiff,
		retries:  retries,
		logger:   logger.With().Str("component", "reconciliation_engine").Logger(),
		now:      time.Now,
	}
}

func (e *reconciliationEngine) SubmitBatch(ctx context.Context, batch GradeBatch) (BatchResult, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/reconciliation")
	ctx, span := tracer.Start(ctx, "grading.submit_batch")
	span.SetAttributes(
		attribute.Int64("grading.usage_id", int64(batch.UsageID)),
		attribute.Int64("grading.grader_id", int64(batch.Grader.ID)),
		attribute.String("grading.role", string(batch.Grader.Role)),
		attribute.Int("grading.entries", len(batch.Entries)),
	)
	defer span.End()

	if err := validateBatch(batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return BatchResult{}, err
	}

	attempt, err := e.attempts.GetByUsage(ctx, batch.UsageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err := notFoundError(0, "usage %d is not a known attempt", batch.UsageID)
			span.RecordError(err)
			span.SetStatus(codes.Error, "attempt_not_found")
			return BatchResult{}, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_lookup_failed")
		return BatchResult{}, err
	}

	for _, entry := range batch.Entries {
		if !attempt.HasSlot(entry.Slot) {
			err := notFoundError(entry.Slot, "attempt %d has %d slots", batch.UsageID, attempt.SlotCount)
			span.RecordError(err)
			span.SetStatus(codes.Error, "slot_not_found")
			return BatchResult{}, err
		}
	}

	maxDiff, err := e.maxDiff.MaxDiff(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "max_diff_lookup_failed")
		return BatchResult{}, err
	}

	var result BatchResult
	for attemptNo := 1; attemptNo <= e.retries; attemptNo++ {
		result, err = e.apply(ctx, batch, maxDiff)
		if err == nil || !errors.Is(err, repository.ErrStorageConflict) {
			break
		}
		e.logger.Debug().
			Err(err).
			Uint("usage_id", batch.UsageID).
			Int("attempt", attemptNo).
			Msg("grade batch conflicted, retrying")
	}

	if err != nil {
		if errors.Is(err, repository.ErrStorageConflict) {
			err = &GradingError{Kind: ErrGradeStorageConflict, Cause: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_rejected")
		return BatchResult{}, err
	}

	span.SetAttributes(
		attribute.Int("grading.touched", len(result.Outcomes)),
		attribute.Int("grading.reconciled", len(result.Reconciled())),
	)
	return result, nil
}

func (e *reconciliationEngine) apply(ctx context.Context, batch GradeBatch, maxDiff float64) (BatchResult, error) {
	type touchedSlot struct {
		record        models.GradeRecord
		wasReconciled bool
		previousFinal *float64
	}

	touched := make(map[int]*touchedSlot)
	order := make([]int, 0, len(batch.Entries))
	now := e.now()

	err := e.records.Transaction(ctx, func(store repository.GradeRecordStore) error {
		for _, entry := range batch.Entries {
			if entry.Score == nil {
				continue
			}

			slot, ok := touched[entry.Slot]
			if !ok {
				record, found, err := store.LockSlot(ctx, batch.UsageID, entry.Slot)
				if err != nil {
					return err
				}
				if !found {
					record = models.GradeRecord{
						UsageID: batch.UsageID,
						Slot:    entry.Slot,
						Status:  models.GradeStatusPending,
					}
				}
				slot = &touchedSlot{
					record:        record,
					wasReconciled: record.IsReconciled(),
					previousFinal: record.GradeFinal,
				}
				touched[entry.Slot] = slot
				order = append(order, entry.Slot)
			}

			if batch.Grader.Role != models.GraderRoleHead && slot.record.HeadRuled() {
				return authorizationError(entry.Slot)
			}

			slot.record.SetScore(batch.Grader.Role, *entry.Score, batch.Grader.ID, now)
		}

		for _, slotNo := range order {
			slot := touched[slotNo]
			slot.record = Reconcile(slot.record, maxDiff)
			if err := store.Save(ctx, &slot.record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{
		UsageID:  batch.UsageID,
		Grader:   batch.Grader,
		Outcomes: make([]SlotOutcome, 0, len(order)),
	}
	for _, slotNo := range order {
		slot := touched[slotNo]
		justReconciled := slot.record.IsReconciled() &&
			(!slot.wasReconciled || !sameScore(slot.previousFinal, slot.record.GradeFinal))
		result.Outcomes = append(result.Outcomes, SlotOutcome{
			Record:         slot.record,
			JustReconciled: justReconciled,
		})
	}
	return result, nil
}

func validateBatch(batch GradeBatch) error {
	if !batch.Grader.Role.Valid() {
		return validationError(0, "unknown grader role %q", batch.Grader.Role)
	}
	if batch.Grader.ID == 0 {
		return validationError(0, "grader id is required")
	}
	if batch.UsageID == 0 {
		return validationError(0, "usage id is required")
	}
	if len(batch.Entries) == 0 {
		return validationError(0, "batch has no entries")
	}

	for _, entry := range batch.Entries {
		if entry.Slot <= 0 {
			return validationError(entry.Slot, "slot must be positive")
		}
		if entry.MaxScore < 0 {
			return validationError(entry.Slot, "max score must not be negative")
		}
		if entry.Score != nil && !ScoreInRange(*entry.Score, entry.MaxScore) {
			return validationError(entry.Slot, "score %v is outside [0, %v]", *entry.Score, entry.MaxScore)
		}
	}
	return nil
}
