package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshEventPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	finished := now.Add(time.Minute)

	task := domain.NewRefreshTask("task-1", domain.RefreshTriggerScheduled, now)
	task.Status = domain.RefreshCompleted
	task.SegmentCount = 42
	task.StartedAt = &now
	task.FinishedAt = &finished

	payload, err := NewRefreshEventPayload(task, finished)
	require.NoError(t, err)

	var event RefreshEvent
	require.NoError(t, json.Unmarshal(payload, &event))

	_, err = uuid.Parse(event.EventID)
	assert.NoError(t, err)
	assert.Equal(t, refreshEventType, event.EventType)
	assert.Equal(t, finished.UnixNano(), event.EventTimestamp)
	assert.Equal(t, "task-1", event.TaskID)
	assert.Equal(t, "scheduled", event.Trigger)
	assert.Equal(t, "completed", event.Status)
	assert.Equal(t, 42, event.SegmentCount)
	assert.Empty(t, event.Error)
	require.NotNil(t, event.FinishedAt)
	assert.True(t, finished.Equal(*event.FinishedAt))
}

func TestNewRefreshEventPayload_FailedTaskCarriesError(t *testing.T) {
	task := domain.NewRefreshTask("task-2", domain.RefreshTriggerManual, time.Now())
	task.Status = domain.RefreshFailed
	task.Error = "embedding service unavailable"

	payload, err := NewRefreshEventPayload(task, time.Now())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "embedding service unavailable", raw["error"])
	assert.NotContains(t, raw, "started_at")
}
