package erasure

import (
	"context"
	"sort"
	"sync"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// InMemoryStore is a reference Store implementation that also satisfies
// QueryStore and CertificateStore; callers type-assert for the optional
// capabilities rather than going through a reflective GetService(type)
// lookup, which is the idiomatic Go equivalent of spec §6's capability
// query.
type InMemoryStore struct {
	mu            sync.Mutex
	requests      map[string]Request
	statuses      map[string]ErasureStatusRecord
	certsByReq    map[string]Certificate
	certsByID     map[string]Certificate
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests:   make(map[string]Request),
		statuses:   make(map[string]ErasureStatusRecord),
		certsByReq: make(map[string]Certificate),
		certsByID:  make(map[string]Certificate),
	}
}

func (s *InMemoryStore) SaveRequest(ctx context.Context, req Request, status ErasureStatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.RequestID] = req
	s.statuses[req.RequestID] = status
	return nil
}

func (s *InMemoryStore) GetStatus(ctx context.Context, requestID string) (ErasureStatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[requestID]
	return status, ok, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, requestID string, newStatus Status, expectedFrom *Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[requestID]
	if !ok {
		return false, nil
	}
	if expectedFrom != nil && status.Status != *expectedFrom {
		return false, nil
	}
	status.Status = newStatus
	s.statuses[requestID] = status
	return true, nil
}

func (s *InMemoryStore) RecordCompletion(ctx context.Context, requestID string, keysDeleted, keysSkipped, recordsAffected int, certificateID string, errs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[requestID]
	if !ok {
		return cerrors.NotFound("erasure_request", requestID)
	}
	status.KeysDeleted = keysDeleted
	status.KeysSkipped = keysSkipped
	status.RecordsAffected = recordsAffected
	status.CertificateID = certificateID
	status.Errors = errs
	if len(errs) > 0 && keysDeleted == 0 && recordsAffected == 0 {
		status.Status = StatusFailed
	} else if len(errs) > 0 {
		status.Status = StatusPartiallyCompleted
	} else {
		status.Status = StatusCompleted
	}
	s.statuses[requestID] = status
	return nil
}

func (s *InMemoryStore) RecordCancellation(ctx context.Context, requestID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[requestID]
	if !ok {
		return cerrors.NotFound("erasure_request", requestID)
	}
	status.Status = StatusCancelled
	status.CancellationReason = reason
	s.statuses[requestID] = status
	return nil
}

func (s *InMemoryStore) GetScheduledRequests(ctx context.Context, max int) ([]ErasureStatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ErasureStatusRecord
	for _, status := range s.statuses {
		if status.Status == StatusScheduled {
			out = append(out, status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (s *InMemoryStore) ListRequests(ctx context.Context, filter RequestFilter, pageSize, pageOffset int) ([]ErasureStatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []ErasureStatusRecord
	for _, status := range s.statuses {
		if filter.Status != nil && status.Status != *filter.Status {
			continue
		}
		if filter.TenantID != "" && status.TenantID != filter.TenantID {
			continue
		}
		matched = append(matched, status)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RequestedAt.Before(matched[j].RequestedAt) })

	if pageOffset >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if pageSize > 0 && pageOffset+pageSize < end {
		end = pageOffset + pageSize
	}
	return matched[pageOffset:end], nil
}

func (s *InMemoryStore) GetCertificate(ctx context.Context, requestID string) (Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certsByReq[requestID]
	return cert, ok, nil
}

func (s *InMemoryStore) GetCertificateByID(ctx context.Context, certificateID string) (Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certsByID[certificateID]
	return cert, ok, nil
}

func (s *InMemoryStore) SaveCertificate(ctx context.Context, cert Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certsByReq[cert.RequestID] = cert
	s.certsByID[cert.CertificateID] = cert
	return nil
}
