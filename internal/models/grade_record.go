package models

import "time"

// GraderRole identifies which grading column a grader writes to.
type GraderRole string

const (
	// GraderRoleMain is the primary grader of an attempt.
	GraderRoleMain GraderRole = "main"
	// GraderRoleSubs is the substitute grader whose score is reconciled against main.
	GraderRoleSubs GraderRole = "subs"
	// GraderRoleHead is the supervising grader; its score always wins.
	GraderRoleHead GraderRole = "head"
)

// Valid reports whether the role is one of the known grading roles.
func (r GraderRole) Valid() bool {
	switch r {
	case GraderRoleMain, GraderRoleSubs, GraderRoleHead:
		return true
	default:
		return false
	}
}

const (
	// GradeStatusPending marks a slot that has no final grade yet.
	GradeStatusPending = "pending"
	// GradeStatusReconciled marks a slot whose final grade has been computed.
	GradeStatusReconciled = "reconciled"
)

// GradeRecord holds the independent scores and the reconciled result for one question slot of an attempt.
type GradeRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UsageID      uint       `gorm:"not null;uniqueIndex:idx_grade_records_usage_slot" json:"usage_id"`
	Slot         int        `gorm:"not null;uniqueIndex:idx_grade_records_usage_slot" json:"slot"`
	GradeMain    *float64   `json:"grade_main"`
	GradeSubs    *float64   `json:"grade_subs"`
	GradeHead    *float64   `json:"grade_head"`
	GradeFinal   *float64   `json:"grade_final"`
	MaxDiff      *float64   `json:"max_diff"`
	Status       string     `gorm:"size:16;not null;default:pending" json:"status"`
	GraderMainID *uint      `json:"grader_main_id"`
	GraderSubsID *uint      `json:"grader_subs_id"`
	GraderHeadID *uint      `json:"grader_head_id"`
	MainGradedAt *time.Time `json:"main_graded_at"`
	SubsGradedAt *time.Time `json:"subs_graded_at"`
	HeadGradedAt *time.Time `json:"head_graded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsReconciled reports whether the record carries a final grade.
func (r GradeRecord) IsReconciled() bool {
	return r.Status == GradeStatusReconciled && r.GradeFinal != nil
}

// HeadRuled reports whether a supervising grader has already scored the slot.
func (r GradeRecord) HeadRuled() bool {
	return r.GradeHead != nil
}

// Score returns the value stored in the column owned by the given role.
func (r GradeRecord) Score(role GraderRole) *float64 {
	switch role {
	case GraderRoleMain:
		return r.GradeMain
	case GraderRoleSubs:
		return r.GradeSubs
	case GraderRoleHead:
		return r.GradeHead
	default:
		return nil
	}
}

// SetScore writes the score and stamps the grader identity for the role's column.
func (r *GradeRecord) SetScore(role GraderRole, score float64, graderID uint, at time.Time) {
	value := score
	grader := graderID
	stamp := at
	switch role {
	case GraderRoleMain:
		r.GradeMain = &value
		r.GraderMainID = &grader
		r.MainGradedAt = &stamp
	case GraderRoleSubs:
		r.GradeSubs = &value
		r.GraderSubsID = &grader
		r.SubsGradedAt = &stamp
	case GraderRoleHead:
		r.GradeHead = &value
		r.GraderHeadID = &grader
		r.HeadGradedAt = &stamp
	}
}
