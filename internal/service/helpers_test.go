package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.QuizAttempt{},
		&models.GradeRecord{},
		&models.GradingSetting{},
		&models.EssaySuggestion{},
		&models.ActivityLog{},
	))
	return db
}

func seedAttempt(t *testing.T, db *gorm.DB, usageID, quizID uint, slots int) models.QuizAttempt {
	t.Helper()
	attempt := models.QuizAttempt{UsageID: usageID, QuizID: quizID, UserID: usageID + 1000, SlotCount: slots}
	require.NoError(t, db.Create(&attempt).Error)
	return attempt
}

type staticMaxDiff struct {
	mu    sync.Mutex
	value float64
	calls int
}

func (s *staticMaxDiff) MaxDiff(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.value, nil
}

func (s *staticMaxDiff) set(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
}

func score(v float64) *float64 {
	return &v
}
