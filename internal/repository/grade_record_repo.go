package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ErrStorageConflict reports that a transaction lost a race against a concurrent update.
var ErrStorageConflict = errors.New("storage conflict")

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// GradeRecordStore is the transaction-scoped view of grade records.
type GradeRecordStore interface {
	// LockSlot loads the record for update. The bool is false when no record exists yet.
	LockSlot(ctx context.Context, usageID uint, slot int) (models.GradeRecord, bool, error)
	Save(ctx context.Context, record *models.GradeRecord) error
}

// GradeRecordRepository persists reconciliation records.
type GradeRecordRepository interface {
	Transaction(ctx context.Context, fn func(store GradeRecordStore) error) error
	Get(ctx context.Context, usageID uint, slot int) (models.GradeRecord, error)
	ListByUsage(ctx context.Context, usageID uint) ([]models.GradeRecord, error)
	ListByUsages(ctx context.Context, usageIDs []uint) ([]models.GradeRecord, error)
}

type gradeRecordRepository struct {
	db *gorm.DB
}

// NewGradeRecordRepository constructs the gorm-backed grade record repository.
func NewGradeRecordRepository(db *gorm.DB) GradeRecordRepository {
	return &gradeRecordRepository{db: db}
}

func (r *gradeRecordRepository) Transaction(ctx context.Context, fn func(store GradeRecordStore) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gradeRecordStore{db: tx})
	})
	if err != nil && isConflict(err) {
		return fmt.Errorf("%w: %v", ErrStorageConflict, err)
	}
	return err
}

func (r *gradeRecordRepository) Get(ctx context.Context, usageID uint, slot int) (models.GradeRecord, error) {
	var record models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("usage_id = ? AND slot = ?", usageID, slot).
		Take(&record).Error; err != nil {
		return models.GradeRecord{}, err
	}
	return record, nil
}

func (r *gradeRecordRepository) ListByUsage(ctx context.Context, usageID uint) ([]models.GradeRecord, error) {
	var records []models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("usage_id = ?", usageID).
		Order("slot ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *gradeRecordRepository) ListByUsages(ctx context.Context, usageIDs []uint) ([]models.GradeRecord, error) {
	if len(usageIDs) == 0 {
		return []models.GradeRecord{}, nil
	}

	var records []models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("usage_id IN ?", usageIDs).
		Order("usage_id ASC, slot ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type gradeRecordStore struct {
	db *gorm.DB
}

func (s *gradeRecordStore) LockSlot(ctx context.Context, usageID uint, slot int) (models.GradeRecord, bool, error) {
	var record models.GradeRecord
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("usage_id = ? AND slot = ?", usageID, slot).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradeRecord{}, false, nil
		}
		return models.GradeRecord{}, false, err
	}
	return record, true, nil
}

func (s *gradeRecordStore) Save(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == 0 {
		return s.db.WithContext(ctx).Create(record).Error
	}
	return s.db.WithContext(ctx).Save(record).Error
}

func isConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
