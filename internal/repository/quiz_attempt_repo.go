package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// QuizAttemptRepository exposes the attempt metadata mirrored from the host.
type QuizAttemptRepository interface {
	GetByUsage(ctx context.Context, usageID uint) (models.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error)
	Upsert(ctx context.Context, attempt *models.QuizAttempt) error
}

type quizAttemptRepository struct {
	db *gorm.DB
}

// NewQuizAttemptRepository constructs the attempt repository.
func NewQuizAttemptRepository(db *gorm.DB) QuizAttemptRepository {
	return &quizAttemptRepository{db: db}
}

func (r *quizAttemptRepository) GetByUsage(ctx context.Context, usageID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).Where("usage_id = ?", usageID).Take(&attempt).Error; err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *quizAttemptRepository) ListByQuiz(ctx context.Context, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("usage_id ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *quizAttemptRepository) Upsert(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "usage_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quiz_id", "user_id", "slot_count", "updated_at"}),
	}).Create(attempt).Error
}
