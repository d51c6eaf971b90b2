package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	filtered := make([]models.ActivityLog, 0, len(m.entries))
	for _, entry := range m.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityID != nil && (entry.EntityID == nil || *entry.EntityID != *filter.EntityID) {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, int64(len(filtered)), nil
}

func (m *memoryActivityRepo) actions() []string {
	actions := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func TestActivityServiceRecordNormalisesEntry(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:       7,
		ActorRole:     " Head ",
		Action:        "Grading.Batch_Submitted",
		EntityType:    "Quiz_Attempt",
		EntityID:      ptrUint(42),
		CorrelationID: "corr-1",
		Metadata:      map[string]interface{}{"slots": []int{1, 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "head", entry.ActorRole)
	require.Equal(t, "grading.batch_submitted", entry.Action)
	require.Equal(t, "quiz_attempt", entry.EntityType)
	require.Equal(t, "corr-1", entry.CorrelationID)
	require.Len(t, repo.entries, 1)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "quiz_attempt"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersByEntity(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	for _, usage := range []uint{1, 2, 1} {
		_, err := svc.Record(context.Background(), ActivityEntry{
			ActorID:    1,
			ActorRole:  "main",
			Action:     "grading.batch_submitted",
			EntityType: "quiz_attempt",
			EntityID:   ptrUint(usage),
		})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 10, EntityID: 1})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, int64(2), list.Pagination.TotalItems)
	require.Equal(t, 1, list.Pagination.TotalPages)
}

func ptrUint(v uint) *uint {
	return &v
}
