package models

import "time"

// SettingMaxDiff is the key of the reconciliation tolerance setting.
const SettingMaxDiff = "max_diff"

// GradingSetting stores an administrator-editable grading option.
type GradingSetting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     float64   `gorm:"not null" json:"value"`
	UpdatedBy uint      `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}
