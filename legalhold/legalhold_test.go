package legalhold

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesBySubjectHash(t *testing.T) {
	hold := LegalHold{IsActive: true, DataSubjectIDHash: "HASH1"}
	assert.True(t, hold.Matches("HASH1", ""))
	assert.False(t, hold.Matches("HASH2", ""))
}

func TestMatchesByTenantWhenSubjectAgnostic(t *testing.T) {
	hold := LegalHold{IsActive: true, TenantID: "tenant-a"}
	assert.True(t, hold.Matches("any-hash", "tenant-a"))
	assert.False(t, hold.Matches("any-hash", "tenant-b"))
}

func TestInactiveHoldNeverMatches(t *testing.T) {
	hold := LegalHold{IsActive: false, DataSubjectIDHash: "HASH1"}
	assert.False(t, hold.Matches("HASH1", ""))
}

func TestCreateRequiresCaseReference(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Create(context.Background(), LegalHold{})
	assert.Error(t, err)
}

func TestFindBlockingHoldReturnsFirstMatch(t *testing.T) {
	store := NewInMemoryStore()
	service, err := NewService(store, Options{})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), LegalHold{
		DataSubjectIDHash: "HASH1", CaseReference: "CASE-001", Basis: BasisLitigationHold, CreatedBy: "admin",
	})
	require.NoError(t, err)

	hold, found, err := service.FindBlockingHold(context.Background(), "HASH1", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "CASE-001", hold.CaseReference)

	_, found, err = service.FindBlockingHold(context.Background(), "HASH2", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReleaseDeactivatesHold(t *testing.T) {
	store := NewInMemoryStore()
	service, err := NewService(store, Options{})
	require.NoError(t, err)

	created, err := service.Create(context.Background(), LegalHold{
		DataSubjectIDHash: "HASH1", CaseReference: "CASE-001", CreatedBy: "admin",
	})
	require.NoError(t, err)

	released, err := service.Release(context.Background(), created.HoldID, "admin", "resolved")
	require.NoError(t, err)
	assert.False(t, released.IsActive)
	assert.Equal(t, "resolved", released.ReleaseReason)

	_, found, err := service.FindBlockingHold(context.Background(), "HASH1", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListExpiringFiltersByExpiresAt(t *testing.T) {
	store := NewInMemoryStore()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	_, err := store.Create(context.Background(), LegalHold{CaseReference: "CASE-PAST", ExpiresAt: &past})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), LegalHold{CaseReference: "CASE-FUTURE", ExpiresAt: &future})
	require.NoError(t, err)

	expiring, err := store.ListExpiring(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "CASE-PAST", expiring[0].CaseReference)
}

func TestSweepExpiredReleasesExpiredHolds(t *testing.T) {
	store := NewInMemoryStore()
	service, err := NewService(store, Options{})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	created, err := store.Create(context.Background(), LegalHold{CaseReference: "CASE-EXPIRED", ExpiresAt: &past})
	require.NoError(t, err)

	require.NoError(t, service.sweepExpired(context.Background()))

	hold, found, err := store.Get(context.Background(), created.HoldID)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, hold.IsActive)
}

func TestNewServiceRejectsInvalidSchedule(t *testing.T) {
	store := NewInMemoryStore()
	_, err := NewService(store, Options{SweepSchedule: "garbage"})
	assert.Error(t, err)
}
