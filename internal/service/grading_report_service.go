package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// Attempt-level grading statuses shown on the dashboard, in precedence order.
// needs_head: a pending slot where main and subs disagree beyond max_diff.
// waiting: a pending slot still misses its main or subs score.
// saved: every recorded slot is reconciled but some slots are ungraded.
const (
	AttemptStatusNeedsGrading = "needs_grading"
	AttemptStatusNeedsHead    = "needs_head"
	AttemptStatusWaiting      = "waiting"
	AttemptStatusSaved        = "saved"
	AttemptStatusFinal        = "final"
)

// ErrUnknownAttemptStatus indicates an overview filter that matches no status.
var ErrUnknownAttemptStatus = errors.New("unknown attempt status filter")

// GradingReportService renders read-side views over reconciliation records.
type GradingReportService interface {
	AttemptReport(ctx context.Context, usageID uint) (dto.AttemptReportResponse, error)
	QuizOverview(ctx context.Context, quizID uint, statusFilter string) (dto.QuizOverviewResponse, error)
	Invalidate(ctx context.Context, usageID uint)
}

type gradingReportService struct {
	records  repository.GradeRecordRepository
	attempts repository.QuizAttemptRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewGradingReportService constructs the report service. cache may be nil.
func NewGradingReportService(records repository.GradeRecordRepository, attempts repository.QuizAttemptRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) GradingReportService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &gradingReportService{
		records:  records,
		attempts: attempts,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "grading_report_service").Logger(),
		now:      time.Now,
	}
}

// Reports are cached under a per-attempt version bumped by Invalidate, so a
// read that started before a batch committed stores its result under a key
// nobody reads anymore.
func reportVersionKey(usageID uint) string {
	return fmt.Sprintf("grading:report:usage:%d:version", usageID)
}

func reportCacheKey(usageID uint, version int64) string {
	return fmt.Sprintf("grading:report:usage:%d:v%d", usageID, version)
}

func (s *gradingReportService) cacheVersion(ctx context.Context, usageID uint) (int64, bool) {
	version, err := s.cache.Get(ctx, reportVersionKey(usageID)).Int64()
	switch {
	case err == nil:
		return version, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		s.logger.Warn().Err(err).Uint("usage_id", usageID).Msg("failed to read report cache version")
		return 0, false
	}
}

func (s *gradingReportService) AttemptReport(ctx context.Context, usageID uint) (dto.AttemptReportResponse, error) {
	ctx, span := otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/grading_report").Start(ctx, "grading.attempt_report")
	span.SetAttributes(attribute.Int64("grading.usage_id", int64(usageID)))
	defer span.End()

	var cacheKey string
	useCache := false
	if s.cache != nil {
		if version, ok := s.cacheVersion(ctx, usageID); ok {
			cacheKey = reportCacheKey(usageID, version)
			useCache = true
		}
	}
	if useCache {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.AttemptReportResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("grading.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read report cache")
		}
	}

	attempt, err := s.attempts.GetByUsage(ctx, usageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptReportResponse{}, notFoundError(0, "usage %d is not a known attempt", usageID)
		}
		return dto.AttemptReportResponse{}, err
	}

	records, err := s.records.ListByUsage(ctx, usageID)
	if err != nil {
		return dto.AttemptReportResponse{}, err
	}

	summary := summarizeAttempt(attempt, records)
	response := dto.AttemptReportResponse{
		Attempt:     dto.NewQuizAttemptResponse(attempt),
		Status:      summary.status,
		Graded:      len(records),
		Reconciled:  summary.reconciled,
		Totals:      summary.totals,
		Records:     make([]dto.GradeRecordResponse, 0, len(records)),
		GeneratedAt: s.now().UTC(),
	}
	for _, record := range records {
		response.Records = append(response.Records, dto.NewGradeRecordResponse(record))
	}

	if useCache {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report cache")
			}
		}
	}

	return response, nil
}

func (s *gradingReportService) QuizOverview(ctx context.Context, quizID uint, statusFilter string) (dto.QuizOverviewResponse, error) {
	filter := strings.ToLower(strings.TrimSpace(statusFilter))
	if filter == "" {
		filter = "all"
	}
	switch filter {
	case "all", AttemptStatusNeedsGrading, AttemptStatusNeedsHead, AttemptStatusWaiting, AttemptStatusSaved, AttemptStatusFinal:
	default:
		return dto.QuizOverviewResponse{}, ErrUnknownAttemptStatus
	}

	attempts, err := s.attempts.ListByQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizOverviewResponse{}, err
	}

	usageIDs := make([]uint, 0, len(attempts))
	for _, attempt := range attempts {
		usageIDs = append(usageIDs, attempt.UsageID)
	}

	records, err := s.records.ListByUsages(ctx, usageIDs)
	if err != nil {
		return dto.QuizOverviewResponse{}, err
	}

	byUsage := make(map[uint][]models.GradeRecord, len(attempts))
	for _, record := range records {
		byUsage[record.UsageID] = append(byUsage[record.UsageID], record)
	}

	response := dto.QuizOverviewResponse{
		QuizID:   quizID,
		Filter:   filter,
		Statuses: map[string]int{},
		Items:    make([]dto.QuizOverviewItem, 0, len(attempts)),
	}
	for _, attempt := range attempts {
		attemptRecords := byUsage[attempt.UsageID]
		summary := summarizeAttempt(attempt, attemptRecords)
		response.Statuses[summary.status]++
		if filter != "all" && summary.status != filter {
			continue
		}
		response.Items = append(response.Items, dto.QuizOverviewItem{
			UsageID:    attempt.UsageID,
			UserID:     attempt.UserID,
			SlotCount:  attempt.SlotCount,
			Graded:     len(attemptRecords),
			Reconciled: summary.reconciled,
			Status:     summary.status,
			Totals:     summary.totals,
		})
	}

	return response, nil
}

func (s *gradingReportService) Invalidate(ctx context.Context, usageID uint) {
	if s.cache == nil {
		return
	}
	version, err := s.cache.Incr(ctx, reportVersionKey(usageID)).Result()
	if err != nil {
		s.logger.Warn().Err(err).Uint("usage_id", usageID).Msg("failed to invalidate report cache")
		return
	}
	if err := s.cache.Del(ctx, reportCacheKey(usageID, version-1)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("usage_id", usageID).Msg("failed to drop stale report cache")
	}
}

type attemptSummary struct {
	status     string
	reconciled int
	totals     dto.GradeTotals
}

func summarizeAttempt(attempt models.QuizAttempt, records []models.GradeRecord) attemptSummary {
	summary := attemptSummary{status: AttemptStatusNeedsGrading}
	if len(records) == 0 {
		return summary
	}

	disputed, incomplete := 0, 0
	for _, record := range records {
		summary.totals.Main = addScore(summary.totals.Main, record.GradeMain)
		summary.totals.Subs = addScore(summary.totals.Subs, record.GradeSubs)
		summary.totals.Head = addScore(summary.totals.Head, record.GradeHead)
		summary.totals.Final = addScore(summary.totals.Final, record.GradeFinal)
		switch {
		case record.IsReconciled():
			summary.reconciled++
		case record.GradeMain != nil && record.GradeSubs != nil:
			disputed++
		default:
			incomplete++
		}
	}
	if summary.totals.Final != nil {
		rounded := RoundHalfUp(*summary.totals.Final, 2)
		summary.totals.Final = &rounded
	}

	switch {
	case disputed > 0:
		summary.status = AttemptStatusNeedsHead
	case incomplete > 0:
		summary.status = AttemptStatusWaiting
	case summary.reconciled < attempt.SlotCount:
		summary.status = AttemptStatusSaved
	default:
		summary.status = AttemptStatusFinal
	}
	return summary
}

func addScore(total, value *float64) *float64 {
	if value == nil {
		return total
	}
	sum := *value
	if total != nil {
		sum += *total
	}
	return &sum
}
