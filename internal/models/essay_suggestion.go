package models

import (
	"time"

	"gorm.io/datatypes"
)

// EssaySuggestion keeps the latest AI-proposed grade for an essay slot.
type EssaySuggestion struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UsageID     uint              `gorm:"not null;uniqueIndex:idx_essay_suggestions_usage_slot" json:"usage_id"`
	Slot        int               `gorm:"not null;uniqueIndex:idx_essay_suggestions_usage_slot" json:"slot"`
	RequestedBy uint              `gorm:"not null" json:"requested_by"`
	Model       string            `gorm:"size:64" json:"model"`
	Score       float64           `gorm:"not null" json:"score"`
	MaxScore    float64           `gorm:"not null" json:"max_score"`
	Feedback    string            `gorm:"type:text" json:"feedback"`
	Details     datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
