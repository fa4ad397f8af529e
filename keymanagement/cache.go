package keymanagement

import (
	"context"
	"sync"
	"time"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

type cacheEntry struct {
	metadata  Metadata
	expiresAt time.Time
	ttl       time.Duration
}

// inflight tracks a single-flight loader call for one key_id: every
// concurrent GetOrAdd miss for the same key_id waits on the same done
// channel and receives the same result, so the loader runs at most once
// per key_id regardless of caller concurrency (spec §5 "KeyCache's
// get_or_add guarantees at-most-one loader invocation per key_id").
type inflight struct {
	done   chan struct{}
	result Metadata
	err    error
}

// Cache is a TTL cache of key Metadata in front of any Provider. It is
// grounded on the embedding platform's infrastructure/cache.Cache (map + RWMutex +
// per-entry expiration) generalized with single-flight loading and an
// explicit disposed state, since the embedding platform's cache has neither.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]*cacheEntry
	inflightLoads map[string]*inflight
	slidingExpiry bool
	disposed      bool
}

// NewCache constructs a Cache. slidingExpiration, when true, refreshes an
// entry's expiry on every successful TryGet.
func NewCache(slidingExpiration bool) *Cache {
	return &Cache{
		entries:       make(map[string]*cacheEntry),
		inflightLoads: make(map[string]*inflight),
		slidingExpiry: slidingExpiration,
	}
}

// TryGet returns the cached metadata for key_id if present and unexpired.
func (c *Cache) TryGet(keyID string) (Metadata, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return Metadata{}, false, cerrors.Disposed("keymanagement.Cache")
	}

	entry, ok := c.entries[keyID]
	if !ok {
		return Metadata{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, keyID)
		return Metadata{}, false, nil
	}
	if c.slidingExpiry {
		entry.expiresAt = time.Now().Add(entry.ttl)
	}
	return entry.metadata, true, nil
}

// Set inserts or replaces an entry with the given ttl (0 means "never
// expires" within this process's lifetime — represented internally as a
// far-future expiry rather than special-cased, keeping TryGet uniform).
func (c *Cache) Set(metadata Metadata, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return cerrors.Disposed("keymanagement.Cache")
	}
	if ttl <= 0 {
		ttl = 100 * 365 * 24 * time.Hour
	}
	c.entries[metadata.KeyID] = &cacheEntry{metadata: metadata, expiresAt: time.Now().Add(ttl), ttl: ttl}
	return nil
}

func (c *Cache) Remove(keyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return cerrors.Disposed("keymanagement.Cache")
	}
	delete(c.entries, keyID)
	return nil
}

// Invalidate is an alias for Remove, matching spec vocabulary where
// "invalidate" and "remove" are used interchangeably for a single key.
func (c *Cache) Invalidate(keyID string) error { return c.Remove(keyID) }

func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return cerrors.Disposed("keymanagement.Cache")
	}
	c.entries = make(map[string]*cacheEntry)
	return nil
}

// Loader fetches metadata for a cache miss, e.g. Provider.GetKey.
type Loader func(ctx context.Context, keyID string) (Metadata, error)

// GetOrAdd returns the cached entry if present, otherwise invokes loader
// exactly once even under concurrent callers for the same key_id
// (single-flight), caches a non-error result under ttl, and never caches
// a loader error. The caller's context is propagated to loader and to its
// own wait so cancellation before the result arrives is honored.
func (c *Cache) GetOrAdd(ctx context.Context, keyID string, ttl time.Duration, loader Loader) (Metadata, error) {
	if metadata, ok, err := c.TryGet(keyID); err != nil {
		return Metadata{}, err
	} else if ok {
		return metadata, nil
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return Metadata{}, cerrors.Disposed("keymanagement.Cache")
	}
	if existing, ok := c.inflightLoads[keyID]; ok {
		c.mu.Unlock()
		return waitInflight(ctx, existing)
	}

	flight := &inflight{done: make(chan struct{})}
	c.inflightLoads[keyID] = flight
	c.mu.Unlock()

	flight.result, flight.err = loader(ctx, keyID)
	if flight.err == nil {
		_ = c.Set(flight.result, ttl)
	}

	c.mu.Lock()
	delete(c.inflightLoads, keyID)
	c.mu.Unlock()
	close(flight.done)

	return flight.result, flight.err
}

func waitInflight(ctx context.Context, flight *inflight) (Metadata, error) {
	select {
	case <-flight.done:
		return flight.result, flight.err
	case <-ctx.Done():
		return Metadata{}, cerrors.Cancelled()
	}
}

// Dispose marks the cache disposed: every subsequent operation returns a
// disposed error. Idempotent.
func (c *Cache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.entries = nil
}
