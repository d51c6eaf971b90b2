package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

func newReportFixture(t *testing.T) (ReconciliationEngine, GradingReportService, *miniredis.Miniredis) {
	t.Helper()
	db := setupServiceDB(t)
	seedAttempt(t, db, 100, 7, 2)
	seedAttempt(t, db, 101, 7, 2)
	seedAttempt(t, db, 102, 7, 1)
	seedAttempt(t, db, 103, 7, 1)
	seedAttempt(t, db, 300, 8, 1)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	records := repository.NewGradeRecordRepository(db)
	attempts := repository.NewQuizAttemptRepository(db)
	engine := NewReconciliationEngine(records, attempts, &staticMaxDiff{value: 3}, 1, testLogger())
	reports := NewGradingReportService(records, attempts, client, time.Minute, testLogger())
	return engine, reports, mr
}

func TestAttemptReportSummarisesAndCaches(t *testing.T) {
	engine, reports, mr := newReportFixture(t)

	_, err := submit(t, engine, models.GraderRoleMain, 11, 100, entry(1, 78), entry(2, 40))
	require.NoError(t, err)
	_, err = submit(t, engine, models.GraderRoleSubs, 12, 100, entry(1, 80))
	require.NoError(t, err)

	report, err := reports.AttemptReport(context.Background(), 100)
	require.NoError(t, err)
	require.False(t, report.CacheHit)
	require.Equal(t, AttemptStatusWaiting, report.Status)
	require.Equal(t, 2, report.Graded)
	require.Equal(t, 1, report.Reconciled)
	require.Equal(t, 118.0, *report.Totals.Main)
	require.Equal(t, 79.0, *report.Totals.Final)
	require.Nil(t, report.Totals.Head)
	require.Equal(t, "79.00", report.Records[0].FinalMark)
	require.True(t, mr.Exists(reportCacheKey(100, 0)))

	cached, err := reports.AttemptReport(context.Background(), 100)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, report.Status, cached.Status)

	reports.Invalidate(context.Background(), 100)
	require.False(t, mr.Exists(reportCacheKey(100, 0)))

	refreshed, err := reports.AttemptReport(context.Background(), 100)
	require.NoError(t, err)
	require.False(t, refreshed.CacheHit)
	require.True(t, mr.Exists(reportCacheKey(100, 1)))
}

// invalidatingRecords simulates a batch committing and invalidating while a report read is in flight.
type invalidatingRecords struct {
	repository.GradeRecordRepository
	afterList func()
}

func (r *invalidatingRecords) ListByUsage(ctx context.Context, usageID uint) ([]models.GradeRecord, error) {
	records, err := r.GradeRecordRepository.ListByUsage(ctx, usageID)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return records, err
}

func TestAttemptReportDoesNotServeReadRacingAnInvalidation(t *testing.T) {
	db := setupServiceDB(t)
	seedAttempt(t, db, 100, 7, 2)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	attempts := repository.NewQuizAttemptRepository(db)
	records := &invalidatingRecords{GradeRecordRepository: repository.NewGradeRecordRepository(db)}
	engine := NewReconciliationEngine(records, attempts, &staticMaxDiff{value: 3}, 1, testLogger())
	reports := NewGradingReportService(records, attempts, client, time.Minute, testLogger())

	_, err := submit(t, engine, models.GraderRoleMain, 11, 100, entry(1, 78))
	require.NoError(t, err)

	records.afterList = func() {
		_, err := submit(t, engine, models.GraderRoleSubs, 12, 100, entry(1, 80))
		require.NoError(t, err)
		reports.Invalidate(context.Background(), 100)
	}

	stale, err := reports.AttemptReport(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 0, stale.Reconciled)

	fresh, err := reports.AttemptReport(context.Background(), 100)
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, 1, fresh.Reconciled)
	require.Equal(t, "79.00", fresh.Records[0].FinalMark)
}

func TestAttemptReportUnknownUsage(t *testing.T) {
	_, reports, _ := newReportFixture(t)

	_, err := reports.AttemptReport(context.Background(), 404)
	require.ErrorIs(t, err, ErrGradeNotFound)
}

func TestQuizOverviewStatuses(t *testing.T) {
	engine, reports, _ := newReportFixture(t)

	// 100: one slot head-ruled, one never graded.
	_, err := submit(t, engine, models.GraderRoleHead, 13, 100, entry(1, 50))
	require.NoError(t, err)
	// 101: a single grader so far.
	_, err = submit(t, engine, models.GraderRoleMain, 11, 101, entry(1, 70))
	require.NoError(t, err)
	// 102: every slot final.
	_, err = submit(t, engine, models.GraderRoleHead, 13, 102, entry(1, 5))
	require.NoError(t, err)
	// 103: graders disagree beyond max_diff.
	_, err = submit(t, engine, models.GraderRoleMain, 11, 103, entry(1, 70))
	require.NoError(t, err)
	_, err = submit(t, engine, models.GraderRoleSubs, 12, 103, entry(1, 90))
	require.NoError(t, err)

	overview, err := reports.QuizOverview(context.Background(), 7, "")
	require.NoError(t, err)
	require.Equal(t, "all", overview.Filter)
	require.Len(t, overview.Items, 4)
	require.Equal(t, AttemptStatusSaved, overview.Items[0].Status)
	require.Equal(t, AttemptStatusWaiting, overview.Items[1].Status)
	require.Equal(t, AttemptStatusFinal, overview.Items[2].Status)
	require.Equal(t, AttemptStatusNeedsHead, overview.Items[3].Status)

	cases := []struct {
		filter string
		usage  uint
	}{
		{filter: "saved", usage: 100},
		{filter: "waiting", usage: 101},
		{filter: "Final", usage: 102},
		{filter: "needs_head", usage: 103},
	}
	for _, tc := range cases {
		t.Run(tc.filter, func(t *testing.T) {
			filtered, err := reports.QuizOverview(context.Background(), 7, tc.filter)
			require.NoError(t, err)
			require.Len(t, filtered.Items, 1)
			require.Equal(t, tc.usage, filtered.Items[0].UsageID)
			require.Equal(t, 1, filtered.Statuses[AttemptStatusNeedsHead])
		})
	}

	untouched, err := reports.QuizOverview(context.Background(), 8, AttemptStatusNeedsGrading)
	require.NoError(t, err)
	require.Len(t, untouched.Items, 1)

	_, err = reports.QuizOverview(context.Background(), 7, "archived")
	require.ErrorIs(t, err, ErrUnknownAttemptStatus)
}

func TestSummarizeAttemptPrecedence(t *testing.T) {
	attempt := models.QuizAttempt{UsageID: 100, SlotCount: 3}
	disputed := models.GradeRecord{Slot: 1, GradeMain: score(70), GradeSubs: score(90), Status: models.GradeStatusPending}
	single := models.GradeRecord{Slot: 2, GradeSubs: score(60), Status: models.GradeStatusPending}
	agreed := func(slot int) models.GradeRecord {
		return models.GradeRecord{Slot: slot, GradeMain: score(80), GradeSubs: score(80), GradeFinal: score(80), Status: models.GradeStatusReconciled}
	}

	cases := []struct {
		name    string
		records []models.GradeRecord
		status  string
	}{
		{name: "no records", status: AttemptStatusNeedsGrading},
		{name: "disagreement outranks missing grade", records: []models.GradeRecord{single, disputed}, status: AttemptStatusNeedsHead},
		{name: "missing grade", records: []models.GradeRecord{agreed(1), single}, status: AttemptStatusWaiting},
		{name: "ungraded slots remain", records: []models.GradeRecord{agreed(1)}, status: AttemptStatusSaved},
		{name: "all slots reconciled", records: []models.GradeRecord{agreed(1), agreed(2), agreed(3)}, status: AttemptStatusFinal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.status, summarizeAttempt(attempt, tc.records).status)
		})
	}
}
