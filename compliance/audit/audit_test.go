package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreRecordAndQueryAll(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Event{Type: EventDataErasureRequested, TenantID: "tenant-a", SubjectIDHash: "hash-1"}))
	require.NoError(t, store.Record(ctx, Event{Type: EventDataErasureExecuted, TenantID: "tenant-a", SubjectIDHash: "hash-1"}))
	require.NoError(t, store.Record(ctx, Event{Type: EventDataErasureRequested, TenantID: "tenant-b", SubjectIDHash: "hash-2"}))

	all, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, store.Count())
}

func TestQueryFiltersByTenantAndType(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, Event{Type: EventDataErasureRequested, TenantID: "tenant-a"}))
	require.NoError(t, store.Record(ctx, Event{Type: EventDataErasureFailed, TenantID: "tenant-a"}))
	require.NoError(t, store.Record(ctx, Event{Type: EventDataErasureRequested, TenantID: "tenant-b"}))

	failures, err := store.Query(ctx, Filter{TenantID: "tenant-a", Type: EventDataErasureFailed})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, EventDataErasureFailed, failures[0].Type)
}

func TestQueryFiltersByTimeWindow(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	require.NoError(t, store.Record(ctx, Event{Type: EventKeyRotated, Timestamp: old}))
	require.NoError(t, store.Record(ctx, Event{Type: EventKeyRotated, Timestamp: recent}))

	results, err := store.Query(ctx, Filter{Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.WithinDuration(t, recent, results[0].Timestamp, time.Second)
}

func TestQueryResultsOrderedByTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	t1 := time.Now().Add(-time.Hour)
	t2 := time.Now()

	require.NoError(t, store.Record(ctx, Event{Type: EventKeyRotated, Timestamp: t2}))
	require.NoError(t, store.Record(ctx, Event{Type: EventKeyRotated, Timestamp: t1}))

	results, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Timestamp.Before(results[1].Timestamp))
}

func TestRecordDefaultsTimestampWhenUnset(t *testing.T) {
	store := NewInMemoryStore()
	before := time.Now()
	require.NoError(t, store.Record(context.Background(), Event{Type: EventLegalHoldPlaced}))
	after := time.Now()

	results, err := store.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Timestamp.Before(before))
	assert.False(t, results[0].Timestamp.After(after))
}
