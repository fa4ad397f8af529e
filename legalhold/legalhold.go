// Package legalhold implements retention overrides that block erasure for
// matching subjects (spec §3 LegalHold, §4.4 collaborator). Grounded on
// the embedding platform's automation-schedule shape (compare
// internal/app/services/automation/scheduler.go's interval-driven sweep)
// generalized to a cron-driven expiration sweep via internal/worker.
package legalhold

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// Basis names the regulatory or operational reason for a hold.
type Basis string

const (
	BasisLitigationHold   Basis = "LitigationHold"
	BasisRegulatoryHold   Basis = "RegulatoryHold"
	BasisInvestigation    Basis = "Investigation"
	BasisContractualHold  Basis = "ContractualHold"
)

// LegalHold is a retention override (spec §3).
type LegalHold struct {
	HoldID            string
	DataSubjectIDHash string // empty makes the hold subject-agnostic, matching by TenantID; see Matches
	TenantID          string
	Basis             Basis
	CaseReference     string
	Description       string
	IsActive          bool
	CreatedBy         string
	CreatedAt         time.Time
	ExpiresAt         *time.Time
	ReleasedBy        string
	ReleasedAt        *time.Time
	ReleaseReason     string
}

// Matches reports whether this hold blocks a request for
// (dataSubjectIDHash, tenantID): either the subject hash matches, or the
// tenant matches while the hold is subject-agnostic (spec §3).
func (h LegalHold) Matches(dataSubjectIDHash, tenantID string) bool {
	if !h.IsActive {
		return false
	}
	if h.DataSubjectIDHash != "" {
		return h.DataSubjectIDHash == dataSubjectIDHash
	}
	return h.TenantID != "" && h.TenantID == tenantID
}

// Store persists legal holds.
type Store interface {
	Create(ctx context.Context, hold LegalHold) (LegalHold, error)
	Get(ctx context.Context, holdID string) (LegalHold, bool, error)
	FindActiveMatching(ctx context.Context, dataSubjectIDHash, tenantID string) ([]LegalHold, error)
	Release(ctx context.Context, holdID, releasedBy, reason string) (LegalHold, error)
	ListExpiring(ctx context.Context, asOf time.Time) ([]LegalHold, error)
	Update(ctx context.Context, hold LegalHold) error
}

// InMemoryStore is a reference Store implementation.
type InMemoryStore struct {
	mu    sync.RWMutex
	holds map[string]LegalHold
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{holds: make(map[string]LegalHold)}
}

func (s *InMemoryStore) Create(ctx context.Context, hold LegalHold) (LegalHold, error) {
	if hold.CaseReference == "" {
		return LegalHold{}, cerrors.NullArgument("case_reference")
	}
	if hold.HoldID == "" {
		hold.HoldID = uuid.New().String()
	}
	if hold.CreatedAt.IsZero() {
		hold.CreatedAt = time.Now()
	}
	hold.IsActive = true

	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.HoldID] = hold
	return hold, nil
}

func (s *InMemoryStore) Get(ctx context.Context, holdID string) (LegalHold, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[holdID]
	return hold, ok, nil
}

func (s *InMemoryStore) FindActiveMatching(ctx context.Context, dataSubjectIDHash, tenantID string) ([]LegalHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []LegalHold
	for _, hold := range s.holds {
		if hold.Matches(dataSubjectIDHash, tenantID) {
			matches = append(matches, hold)
		}
	}
	return matches, nil
}

func (s *InMemoryStore) Release(ctx context.Context, holdID, releasedBy, reason string) (LegalHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[holdID]
	if !ok {
		return LegalHold{}, cerrors.NotFound("legal_hold", holdID)
	}
	now := time.Now()
	hold.IsActive = false
	hold.ReleasedBy = releasedBy
	hold.ReleasedAt = &now
	hold.ReleaseReason = reason
	s.holds[holdID] = hold
	return hold, nil
}

func (s *InMemoryStore) ListExpiring(ctx context.Context, asOf time.Time) ([]LegalHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LegalHold
	for _, hold := range s.holds {
		if hold.IsActive && hold.ExpiresAt != nil && !hold.ExpiresAt.After(asOf) {
			out = append(out, hold)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Update(ctx context.Context, hold LegalHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[hold.HoldID]; !ok {
		return cerrors.NotFound("legal_hold", hold.HoldID)
	}
	s.holds[hold.HoldID] = hold
	return nil
}
