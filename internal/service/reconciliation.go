package service

import (
	"math"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

const scoreEpsilon = 1e-9

// Reconcile recomputes grade_final and status for a record.
//
// The record's own max_diff wins over the supplied tolerance; when the record has none yet the
// supplied value is captured onto it so later configuration changes do not alter the result.
func Reconcile(record models.GradeRecord, maxDiff float64) models.GradeRecord {
	if record.MaxDiff == nil {
		captured := maxDiff
		record.MaxDiff = &captured
	}

	switch {
	case record.GradeHead != nil:
		final := *record.GradeHead
		record.GradeFinal = &final
		record.Status = models.GradeStatusReconciled
	case record.GradeMain != nil && record.GradeSubs != nil:
		diff := *record.GradeMain - *record.GradeSubs
		if math.Abs(diff) <= *record.MaxDiff+scoreEpsilon {
			final := RoundHalfUp((*record.GradeMain+*record.GradeSubs)/2, 2)
			record.GradeFinal = &final
			record.Status = models.GradeStatusReconciled
		} else {
			record.GradeFinal = nil
			record.Status = models.GradeStatusPending
		}
	default:
		record.GradeFinal = nil
		record.Status = models.GradeStatusPending
	}

	return record
}

// RoundHalfUp rounds a non-negative score to the given number of decimal places, halves going up.
func RoundHalfUp(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	scaled := value * scale
	// absorb representation error so 1.005 rounds like the decimal it was typed as
	scaled = math.Round(scaled*1e6) / 1e6
	return math.Floor(scaled+0.5) / scale
}

// ScoreInRange reports whether a raw score lies within [0, maxScore].
func ScoreInRange(score, maxScore float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return score >= 0 && score <= maxScore
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) < scoreEpsilon
}
