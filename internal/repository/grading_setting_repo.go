package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// GradingSettingRepository reads and writes administrator grading options.
type GradingSettingRepository interface {
	Get(ctx context.Context, key string) (models.GradingSetting, bool, error)
	Upsert(ctx context.Context, setting *models.GradingSetting) error
}

type gradingSettingRepository struct {
	db *gorm.DB
}

// NewGradingSettingRepository constructs the settings repository.
func NewGradingSettingRepository(db *gorm.DB) GradingSettingRepository {
	return &gradingSettingRepository{db: db}
}

func (r *gradingSettingRepository) Get(ctx context.Context, key string) (models.GradingSetting, bool, error) {
	var setting models.GradingSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).Take(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingSetting{}, false, nil
		}
		return models.GradingSetting{}, false, err
	}
	return setting, true, nil
}

func (r *gradingSettingRepository) Upsert(ctx context.Context, setting *models.GradingSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
}
