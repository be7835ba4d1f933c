package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_StatusLifecycle(t *testing.T) {
	s := NewScheduler(logger.NewNopLogger())
	require.NoError(t, s.AddJob(RefreshJobID, RefreshJobName, "0 6 * * 0", func(context.Context) error { return nil }))

	status := s.Status()
	assert.False(t, status.Running)
	require.Len(t, status.Jobs, 1)
	assert.Equal(t, RefreshJobID, status.Jobs[0].ID)
	assert.Equal(t, RefreshJobName, status.Jobs[0].Name)
	assert.Equal(t, "cron[0 6 * * 0]", status.Jobs[0].Trigger)
	assert.Nil(t, status.Jobs[0].NextRunTime)

	s.Start()
	status = s.Status()
	assert.True(t, status.Running)
	require.NotNil(t, status.Jobs[0].NextRunTime)
	assert.Equal(t, time.Sunday, status.Jobs[0].NextRunTime.Weekday())
	assert.Equal(t, 6, status.Jobs[0].NextRunTime.Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Status().Running)
}

func TestScheduler_AddJob_InvalidSpec(t *testing.T) {
	s := NewScheduler(logger.NewNopLogger())
	err := s.AddJob("bad", "Bad", "every sunday", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Status().Jobs)
}

func TestScheduler_RunsJob(t *testing.T) {
	s := NewScheduler(logger.NewNopLogger())
	ran := make(chan struct{}, 1)

	require.NoError(t, s.AddJob("tick", "Tick", "@every 1s", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("job errors are logged only")
	}))

	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
