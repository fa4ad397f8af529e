package keymanagement

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFromPurpose(t *testing.T) {
	assert.Equal(t, ScopeUser, ScopeFromPurpose("USER"))
	assert.Equal(t, ScopeUser, ScopeFromPurpose("user-dek"))
	assert.Equal(t, ScopeTenant, ScopeFromPurpose("tenant-kek"))
	assert.Equal(t, ScopeField, ScopeFromPurpose("field-level"))
	assert.Equal(t, ScopeUser, ScopeFromPurpose(""))
	assert.Equal(t, ScopeUser, ScopeFromPurpose("something-else"))
}

func TestInMemoryProviderRotateAndGetActiveKey(t *testing.T) {
	p := NewInMemoryProvider()
	ctx := context.Background()

	m1, err := p.RotateKey(ctx, "tenant-key-1", AlgorithmAESGCM, "TENANT", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m1.Version)
	assert.Equal(t, StatusActive, m1.Status)

	active, err := p.GetActiveKey(ctx, "TENANT")
	require.NoError(t, err)
	assert.Equal(t, "tenant-key-1", active.KeyID)

	m2, err := p.RotateKey(ctx, "tenant-key-1", AlgorithmAESGCM, "TENANT", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.Version)

	latest, err := p.GetKey(ctx, "tenant-key-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	versions, err := p.ListKeys(ctx, nil, "TENANT")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	var sawDecryptOnly bool
	for _, v := range versions {
		if v.Version == 1 {
			sawDecryptOnly = v.Status == StatusDecryptOnly
		}
	}
	assert.True(t, sawDecryptOnly, "superseded version should become DecryptOnly")
}

func TestGetActiveKeyUnknownPurposeFails(t *testing.T) {
	p := NewInMemoryProvider()
	_, err := p.GetActiveKey(context.Background(), "NOBODY")
	assert.Error(t, err)
}

func TestDeleteKeyDestroysAllVersionsAndZeroesMaterial(t *testing.T) {
	p := NewInMemoryProvider()
	ctx := context.Background()
	_, err := p.RotateKey(ctx, "key-x", AlgorithmAESGCM, "", nil)
	require.NoError(t, err)
	_, err = p.RotateKey(ctx, "key-x", AlgorithmAESGCM, "", nil)
	require.NoError(t, err)

	require.NoError(t, p.DeleteKey(ctx, "key-x", 0))

	versions, err := p.ListKeys(ctx, nil, "")
	require.NoError(t, err)
	for _, v := range versions {
		assert.Equal(t, StatusDestroyed, v.Status)
		assert.Nil(t, v.KeyMaterial)
	}
}

func TestSuspendKeyUnknownFails(t *testing.T) {
	p := NewInMemoryProvider()
	err := p.SuspendKey(context.Background(), "ghost", "compromised")
	assert.Error(t, err)
}

func TestCacheTryGetMissThenSet(t *testing.T) {
	c := NewCache(false)
	_, ok, err := c.TryGet("k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(Metadata{KeyID: "k1", Version: 1}, time.Minute))
	m, ok, err := c.TryGet("k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, m.Version)
}

func TestCacheExpiresEntries(t *testing.T) {
	c := NewCache(false)
	require.NoError(t, c.Set(Metadata{KeyID: "short-lived"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, err := c.TryGet("short-lived")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheOperationsFailAfterDispose(t *testing.T) {
	c := NewCache(false)
	c.Dispose()

	_, _, err := c.TryGet("k")
	assert.Error(t, err)
	assert.Error(t, c.Set(Metadata{KeyID: "k"}, time.Minute))
	assert.Error(t, c.Remove("k"))
	assert.Error(t, c.Clear())
}

func TestCacheGetOrAddSingleFlight(t *testing.T) {
	c := NewCache(false)
	var loaderCalls int32
	var wg sync.WaitGroup

	loader := func(ctx context.Context, keyID string) (Metadata, error) {
		atomic.AddInt32(&loaderCalls, 1)
		time.Sleep(50 * time.Millisecond)
		return Metadata{KeyID: keyID, Version: 7}, nil
	}

	results := make([]Metadata, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			m, err := c.GetOrAdd(context.Background(), "shared-key", time.Minute, loader)
			require.NoError(t, err)
			results[idx] = m
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loaderCalls))
	for _, m := range results {
		assert.Equal(t, 7, m.Version)
	}
}

func TestCacheGetOrAddDoesNotCacheLoaderError(t *testing.T) {
	c := NewCache(false)
	callCount := 0
	loader := func(ctx context.Context, keyID string) (Metadata, error) {
		callCount++
		return Metadata{}, assertError{}
	}

	_, err := c.GetOrAdd(context.Background(), "k", time.Minute, loader)
	assert.Error(t, err)
	_, err = c.GetOrAdd(context.Background(), "k", time.Minute, loader)
	assert.Error(t, err)
	assert.Equal(t, 2, callCount, "a failed load must not be cached")
}

type assertError struct{}

func (assertError) Error() string { return "load failed" }

func TestMultiRegionForceFailoverAndFailback(t *testing.T) {
	primary := NewInMemoryProvider()
	secondary := NewInMemoryProvider()
	mr := NewMultiRegionProvider(
		Region{RegionID: "us-east", Provider: primary},
		Region{RegionID: "us-west", Provider: secondary},
		MultiRegionOptions{},
	)

	status := mr.GetReplicationStatus()
	assert.Equal(t, "us-east", status.ActiveRegionID)
	assert.False(t, status.InFailover)

	require.NoError(t, mr.ForceFailover("planned maintenance"))
	status = mr.GetReplicationStatus()
	assert.Equal(t, "us-west", status.ActiveRegionID)
	assert.True(t, status.InFailover)

	assert.Error(t, mr.ForceFailover("again")) // already in failover

	require.NoError(t, mr.FailbackToPrimary("maintenance complete"))
	status = mr.GetReplicationStatus()
	assert.Equal(t, "us-east", status.ActiveRegionID)
	assert.False(t, status.InFailover)
}

func TestMultiRegionForceFailoverRequiresReason(t *testing.T) {
	mr := NewMultiRegionProvider(
		Region{RegionID: "a", Provider: NewInMemoryProvider()},
		Region{RegionID: "b", Provider: NewInMemoryProvider()},
		MultiRegionOptions{},
	)
	assert.Error(t, mr.ForceFailover(""))
}

func TestMultiRegionDisposeStopsHealthCheck(t *testing.T) {
	mr := NewMultiRegionProvider(
		Region{RegionID: "a", Provider: NewInMemoryProvider()},
		Region{RegionID: "b", Provider: NewInMemoryProvider()},
		MultiRegionOptions{HealthCheckInterval: 10 * time.Millisecond},
	)
	require.NoError(t, mr.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)

	started := time.Now()
	mr.Dispose()
	assert.Less(t, time.Since(started), 2*time.Second)

	_, err := mr.GetKey(context.Background(), "anything")
	assert.Error(t, err)

	mr.Dispose() // idempotent
}

func TestMultiRegionDispatchesToActiveRegion(t *testing.T) {
	primary := NewInMemoryProvider()
	secondary := NewInMemoryProvider()
	ctx := context.Background()
	_, err := secondary.RotateKey(ctx, "only-on-secondary", AlgorithmAESGCM, "", nil)
	require.NoError(t, err)

	mr := NewMultiRegionProvider(
		Region{RegionID: "a", Provider: primary},
		Region{RegionID: "b", Provider: secondary},
		MultiRegionOptions{},
	)

	_, err = mr.GetKey(ctx, "only-on-secondary")
	assert.Error(t, err, "primary is active; key only exists on secondary")

	require.NoError(t, mr.ForceFailover("test"))
	_, err = mr.GetKey(ctx, "only-on-secondary")
	assert.NoError(t, err)
}
