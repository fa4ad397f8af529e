// Package audit defines the event shape and store contract the compliance
// runtime writes through — it is deliberately not a general audit store
// (the embedding application owns that); this package is the minimal
// vocabulary the erasure, key management, and verification services need
// to emit and later query tamper-evident activity records, plus an
// in-memory reference implementation for tests and small deployments.
package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// EventType names the class of an audit event. The erasure and
// verification services compare against these constants (e.g. verifying
// that a DataErasure.Failed event exists is a documented verification
// anomaly that produces a warning, not a hard failure).
type EventType string

const (
	EventDataErasureRequested EventType = "DataErasure.Requested"
	EventDataErasureScheduled EventType = "DataErasure.Scheduled"
	EventDataErasureExecuted  EventType = "DataErasure.Executed"
	EventDataErasureFailed    EventType = "DataErasure.Failed"
	EventDataErasureCancelled EventType = "DataErasure.Cancelled"
	EventLegalHoldPlaced      EventType = "LegalHold.Placed"
	EventLegalHoldReleased    EventType = "LegalHold.Released"
	EventKeyRotated           EventType = "Key.Rotated"
	EventKeySuspended         EventType = "Key.Suspended"
	EventMasterKeyBackedUp    EventType = "MasterKey.BackedUp"
	EventMasterKeyRecovered   EventType = "MasterKey.Recovered"
	EventVerificationFailed   EventType = "Verification.Failed"
)

// Event is a single tamper-evident audit record. Fields beyond Type/
// TenantID/SubjectIDHash/Timestamp are free-form Details so each service
// can carry its own context without growing this package's schema.
type Event struct {
	Type          EventType
	TenantID      string
	SubjectIDHash string
	ResourceID    string
	Actor         string
	Details       map[string]any
	Timestamp     time.Time
}

// Filter narrows a Query call. Zero-value fields are unconstrained.
type Filter struct {
	TenantID      string
	SubjectIDHash string
	Type          EventType
	Since         time.Time
	Until         time.Time
}

func (f Filter) matches(e Event) bool {
	if f.TenantID != "" && f.TenantID != e.TenantID {
		return false
	}
	if f.SubjectIDHash != "" && f.SubjectIDHash != e.SubjectIDHash {
		return false
	}
	if f.Type != "" && f.Type != e.Type {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Store is the contract the compliance services write through
// (spec §6 IAuditStore): Record appends an event, Query filters and
// returns them. Implementations must make Record safe to call
// concurrently and must not block the caller on slow downstream writes
// for longer than the context allows.
type Store interface {
	Record(ctx context.Context, event Event) error
	Query(ctx context.Context, filter Filter) ([]Event, error)
}

// InMemoryStore is a Store backed by an append-only in-process slice,
// useful for tests and single-process deployments. Grounded on the
// teacher's secrets.Manager audit-on-read pattern (infrastructure/
// secrets/manager.go): every mutating or sensitive operation calls
// through a narrow audit sink rather than building a full audit service.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Record(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.matches(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	return matched, nil
}

// Count returns the total number of recorded events, ignoring filters;
// a test convenience, not part of the Store contract.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
