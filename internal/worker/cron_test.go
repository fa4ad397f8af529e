package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronWorkerRunsOnEachOccurrence(t *testing.T) {
	var calls atomic.Int32
	w, err := NewCron(CronConfig{
		Name: "test",
		Spec: "* * * * *",
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	fixed := time.Now().Add(-59 * time.Second) // next minute boundary arrives almost immediately
	w.now = func() time.Time { return fixed }

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	w.Stop()
	assert.False(t, w.IsRunning())
}

func TestCronWorkerRejectsInvalidSpec(t *testing.T) {
	_, err := NewCron(CronConfig{Name: "bad", Spec: "not a cron spec", Fn: func(ctx context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestCronWorkerStartTwiceFails(t *testing.T) {
	w, err := NewCron(CronConfig{Name: "test", Spec: "* * * * *", Fn: func(ctx context.Context) error { return nil }})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}

func TestCronWorkerStopIsIdempotentWhenNotRunning(t *testing.T) {
	w, err := NewCron(CronConfig{Name: "test", Spec: "* * * * *", Fn: func(ctx context.Context) error { return nil }})
	require.NoError(t, err)
	w.Stop()
	assert.False(t, w.IsRunning())
}
