package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// EssaySuggestionRepository stores AI-proposed essay grades.
type EssaySuggestionRepository interface {
	Upsert(ctx context.Context, suggestion *models.EssaySuggestion) error
	ListByUsage(ctx context.Context, usageID uint) ([]models.EssaySuggestion, error)
}

type essaySuggestionRepository struct {
	db *gorm.DB
}

// NewEssaySuggestionRepository constructs the suggestion repository.
func NewEssaySuggestionRepository(db *gorm.DB) EssaySuggestionRepository {
	return &essaySuggestionRepository{db: db}
}

func (r *essaySuggestionRepository) Upsert(ctx context.Context, suggestion *models.EssaySuggestion) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "usage_id"}, {Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"requested_by", "model", "score", "max_score", "feedback", "details", "updated_at",
		}),
	}).Create(suggestion).Error
}

func (r *essaySuggestionRepository) ListByUsage(ctx context.Context, usageID uint) ([]models.EssaySuggestion, error) {
	var suggestions []models.EssaySuggestion
	if err := r.db.WithContext(ctx).
		Where("usage_id = ?", usageID).
		Order("slot ASC").
		Find(&suggestions).Error; err != nil {
		return nil, err
	}
	return suggestions, nil
}
