package models

import "time"

// QuizAttempt mirrors the host's attempt metadata needed to validate grade submissions.
type QuizAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UsageID   uint      `gorm:"not null;uniqueIndex" json:"usage_id"`
	QuizID    uint      `gorm:"not null;index" json:"quiz_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	SlotCount int       `gorm:"not null" json:"slot_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSlot reports whether the slot number exists in the attempt.
func (a QuizAttempt) HasSlot(slot int) bool {
	return slot >= 1 && slot <= a.SlotCount
}
