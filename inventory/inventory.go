// Package inventory implements data-location discovery for erasure
// requests: which tables/fields hold a subject's data, and which
// encryption keys protect it (spec §4.6). Grounded on the embedding platform's
// registration-then-lookup store shape (compare
// infrastructure/secrets/manager.go's provider registry) generalized
// from secret-provider registration to data-location registration.
package inventory

import (
	"context"
	"sync"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

// IDType mirrors the caller's notion of how a data subject identifier is
// typed (spec §4.6 "registrations whose (id_type, optional tenant)
// match"); it is a plain int here so this package has no dependency on
// the erasure package's own IDType, avoiding an import cycle between the
// two collaborating services.
type IDType int

// DataLocation is one registered (table, field) pair that may hold data
// for a subject, alongside the key protecting that field.
type DataLocation struct {
	TableName          string
	FieldName          string
	DataCategory        string
	DataSubjectIDColumn string
	KeyIDColumn         string
	TenantID            string
	KeyID               string
}

// KeyReference binds a key_id to the logical scope derived from its
// purpose (spec §4.6).
type KeyReference struct {
	KeyID string
	Scope keymanagement.Scope
}

// DataInventory is the discovery result for one subject (spec §3).
type DataInventory struct {
	DataSubjectIDHash string
	Locations         []DataLocation
	AssociatedKeys    []KeyReference
}

// Summary is the aggregate view returned alongside an erasure schedule
// result (spec §4.4 "inventory discovery").
type Summary struct {
	EncryptedFieldCount    int
	KeyCount               int
	DataCategories         []string
	AffectedTables         []string
	EstimatedDataSizeBytes int64
}

// Store persists location registrations and discovered inventories.
type Store interface {
	RegisterLocation(ctx context.Context, loc DataLocation) error
	UnregisterLocation(ctx context.Context, tableName, fieldName string) error
	FindLocations(ctx context.Context, idType IDType, tenantID string) ([]DataLocation, error)
	RecordDiscoveredInventory(ctx context.Context, inv DataInventory) error
	GetDiscoveredInventory(ctx context.Context, dataSubjectIDHash string) (DataInventory, bool, error)
}

// InMemoryStore is a reference Store implementation.
type InMemoryStore struct {
	mu         sync.RWMutex
	locations  []DataLocation
	discovered map[string]DataInventory
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{discovered: make(map[string]DataInventory)}
}

// RegisterLocation validates the required fields and appends loc.
func (s *InMemoryStore) RegisterLocation(ctx context.Context, loc DataLocation) error {
	if loc.TableName == "" || loc.FieldName == "" || loc.DataCategory == "" ||
		loc.DataSubjectIDColumn == "" || loc.KeyIDColumn == "" {
		return cerrors.NullArgument("table_name, field_name, data_category, data_subject_id_column, and key_id_column must all be non-empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, loc)
	return nil
}

// UnregisterLocation removes the location keyed by (table_name, field_name).
func (s *InMemoryStore) UnregisterLocation(ctx context.Context, tableName, fieldName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.locations[:0]
	for _, loc := range s.locations {
		if loc.TableName == tableName && loc.FieldName == fieldName {
			continue
		}
		out = append(out, loc)
	}
	s.locations = out
	return nil
}

// FindLocations returns every registered location matching idType's
// implied scope is not itself filterable (idType carries no table
// binding in this reference store); tenantID, when non-empty, narrows to
// locations registered for that tenant or tenant-agnostic locations.
func (s *InMemoryStore) FindLocations(ctx context.Context, idType IDType, tenantID string) ([]DataLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DataLocation
	for _, loc := range s.locations {
		if tenantID != "" && loc.TenantID != "" && loc.TenantID != tenantID {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

func (s *InMemoryStore) RecordDiscoveredInventory(ctx context.Context, inv DataInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discovered[inv.DataSubjectIDHash] = inv
	return nil
}

func (s *InMemoryStore) GetDiscoveredInventory(ctx context.Context, dataSubjectIDHash string) (DataInventory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.discovered[dataSubjectIDHash]
	return inv, ok, nil
}

// RegistrationCount and DataSubjectCount are observable counters for
// tests/ops (spec §4.6).
func (s *InMemoryStore) RegistrationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

func (s *InMemoryStore) DataSubjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.discovered)
}

// Clear resets all registrations and discovered inventories (test harness helper).
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = nil
	s.discovered = make(map[string]DataInventory)
}
