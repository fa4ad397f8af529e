package inventory

import (
	"context"

	ccrypto "github.com/meridian-dispatch/compliance-core/compliance/crypto"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

// Service discovers where a subject's data lives and which keys protect
// it (spec §4.6).
type Service struct {
	store Store
	kms   keymanagement.Provider
}

func NewService(store Store, kms keymanagement.Provider) *Service {
	return &Service{store: store, kms: kms}
}

// Discover runs spec §4.6 discovery algorithm for dataSubjectID: find
// registrations matching (idType, tenantID), merge any previously
// recorded locations for the subject hash, resolve each location's key
// into a KeyReference (omitting keys the provider cannot resolve), and
// persist the combined inventory.
func (s *Service) Discover(ctx context.Context, dataSubjectID string, idType IDType, tenantID string) (DataInventory, Summary, error) {
	hash := ccrypto.HashSubjectID(dataSubjectID)

	registered, err := s.store.FindLocations(ctx, idType, tenantID)
	if err != nil {
		return DataInventory{}, Summary{}, err
	}

	prior, found, err := s.store.GetDiscoveredInventory(ctx, hash)
	if err != nil {
		return DataInventory{}, Summary{}, err
	}

	locations := registered
	if found {
		locations = append(append([]DataLocation{}, prior.Locations...), registered...)
	}

	seenKeys := make(map[string]bool)
	var keys []KeyReference
	categorySeen := make(map[string]bool)
	var categories []string
	tableSeen := make(map[string]bool)
	var tables []string

	for _, loc := range locations {
		if loc.KeyID != "" && !seenKeys[loc.KeyID] {
			if meta, err := s.kms.GetKey(ctx, loc.KeyID); err == nil {
				seenKeys[loc.KeyID] = true
				keys = append(keys, KeyReference{KeyID: loc.KeyID, Scope: keymanagement.ScopeFromPurpose(meta.Purpose)})
			}
			// On key-provider errors the reference is omitted and discovery continues.
		}
		if loc.DataCategory != "" && !categorySeen[loc.DataCategory] {
			categorySeen[loc.DataCategory] = true
			categories = append(categories, loc.DataCategory)
		}
		if loc.TableName != "" && !tableSeen[loc.TableName] {
			tableSeen[loc.TableName] = true
			tables = append(tables, loc.TableName)
		}
	}

	inv := DataInventory{DataSubjectIDHash: hash, Locations: locations, AssociatedKeys: keys}
	if err := s.store.RecordDiscoveredInventory(ctx, inv); err != nil {
		return DataInventory{}, Summary{}, err
	}

	summary := Summary{
		EncryptedFieldCount: len(locations),
		KeyCount:            len(keys),
		DataCategories:      categories,
		AffectedTables:      tables,
	}
	return inv, summary, nil
}

// GetDiscoveredInventoryByHash returns a previously discovered inventory
// by the subject's hash, without re-running discovery.
func (s *Service) GetDiscoveredInventoryByHash(ctx context.Context, dataSubjectIDHash string) (DataInventory, bool, error) {
	return s.store.GetDiscoveredInventory(ctx, dataSubjectIDHash)
}
