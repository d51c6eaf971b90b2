package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func TestReconcileAveragesWithinTolerance(t *testing.T) {
	cases := []struct {
		name     string
		main     float64
		subs     float64
		maxDiff  float64
		expected float64
	}{
		{name: "example", main: 78, subs: 80, maxDiff: 3, expected: 79},
		{name: "exact boundary", main: 10, subs: 13, maxDiff: 3, expected: 11.5},
		{name: "subs higher fractional", main: 78.5, subs: 80, maxDiff: 3, expected: 79.25},
		{name: "half cent rounds up", main: 1.00, subs: 1.01, maxDiff: 1, expected: 1.01},
		{name: "zero tolerance equal", main: 42, subs: 42, maxDiff: 0, expected: 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := models.GradeRecord{GradeMain: score(tc.main), GradeSubs: score(tc.subs)}
			result := Reconcile(record, tc.maxDiff)

			require.Equal(t, models.GradeStatusReconciled, result.Status)
			require.NotNil(t, result.GradeFinal)
			require.InDelta(t, tc.expected, *result.GradeFinal, 1e-9)
			require.Equal(t, tc.maxDiff, *result.MaxDiff)
		})
	}
}

func TestReconcileLeavesPendingBeyondTolerance(t *testing.T) {
	record := models.GradeRecord{GradeMain: score(78), GradeSubs: score(85), GradeFinal: score(81.5), Status: models.GradeStatusReconciled}
	result := Reconcile(record, 3)

	require.Equal(t, models.GradeStatusPending, result.Status)
	require.Nil(t, result.GradeFinal)
}

func TestReconcileZeroToleranceRequiresEquality(t *testing.T) {
	result := Reconcile(models.GradeRecord{GradeMain: score(50), GradeSubs: score(50.5)}, 0)
	require.Equal(t, models.GradeStatusPending, result.Status)
	require.Nil(t, result.GradeFinal)
}

func TestReconcileHeadAlwaysWins(t *testing.T) {
	result := Reconcile(models.GradeRecord{GradeHead: score(90)}, 3)
	require.Equal(t, models.GradeStatusReconciled, result.Status)
	require.Equal(t, 90.0, *result.GradeFinal)

	result = Reconcile(models.GradeRecord{GradeMain: score(10), GradeSubs: score(95), GradeHead: score(60)}, 3)
	require.Equal(t, models.GradeStatusReconciled, result.Status)
	require.Equal(t, 60.0, *result.GradeFinal)
}

func TestReconcileWithSingleGraderStaysPending(t *testing.T) {
	result := Reconcile(models.GradeRecord{GradeMain: score(70)}, 3)
	require.Equal(t, models.GradeStatusPending, result.Status)
	require.Nil(t, result.GradeFinal)
	require.Equal(t, 3.0, *result.MaxDiff)
}

func TestReconcileKeepsCapturedMaxDiff(t *testing.T) {
	record := models.GradeRecord{GradeMain: score(70), GradeSubs: score(75), MaxDiff: score(3)}
	result := Reconcile(record, 10)

	require.Equal(t, 3.0, *result.MaxDiff)
	require.Equal(t, models.GradeStatusPending, result.Status)
}

func TestRoundHalfUp(t *testing.T) {
	require.Equal(t, 79.0, RoundHalfUp(79, 2))
	require.Equal(t, 1.01, RoundHalfUp(1.005, 2))
	require.Equal(t, 2.68, RoundHalfUp(2.675, 2))
	require.Equal(t, 33.33, RoundHalfUp(33.333, 2))
	require.Equal(t, 0.0, RoundHalfUp(0, 2))
}

func TestScoreInRange(t *testing.T) {
	require.True(t, ScoreInRange(0, 100))
	require.True(t, ScoreInRange(100, 100))
	require.False(t, ScoreInRange(-0.5, 100))
	require.False(t, ScoreInRange(100.01, 100))
	require.False(t, ScoreInRange(100+1e-10, 100))
	require.False(t, ScoreInRange(math.NaN(), 100))
}
