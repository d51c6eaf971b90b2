package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func TestGradeForwarderPublishesReconciledGrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "gema:grading:reconciled")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	forwarder := NewGradeForwarder(client, nil, "gema:grading", testLogger())
	err = forwarder.Forward(ctx, Grader{ID: 13, Role: models.GraderRoleHead}, 100, []models.GradeRecord{
		{Slot: 1, GradeFinal: score(79), Status: models.GradeStatusReconciled},
		{Slot: 2, GradeHead: score(12.5), GradeFinal: score(12.5), Status: models.GradeStatusReconciled},
	})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var event GradeReconciledEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, GradeReconciledEventType, event.Type)
		require.Equal(t, uint(100), event.UsageID)
		require.Equal(t, "head", event.Role)
		require.Len(t, event.Grades, 2)
		require.Equal(t, "79.00", event.Grades[0].Mark)
		require.False(t, event.Grades[0].HeadRuled)
		require.Equal(t, "12.50", event.Grades[1].Mark)
		require.True(t, event.Grades[1].HeadRuled)
	case <-time.After(2 * time.Second):
		t.Fatal("expected reconciled event")
	}
}

func TestGradeForwarderSkipsEmptyBatches(t *testing.T) {
	forwarder := NewGradeForwarder(nil, nil, "gema:grading", testLogger())

	require.NoError(t, forwarder.Forward(context.Background(), Grader{ID: 1, Role: models.GraderRoleMain}, 100, nil))
	require.NoError(t, forwarder.Forward(context.Background(), Grader{ID: 1, Role: models.GraderRoleMain}, 100, []models.GradeRecord{{Slot: 1}}))
}
