package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dispatch/compliance-core/compliance/audit"
	"github.com/meridian-dispatch/compliance-core/erasure"
	"github.com/meridian-dispatch/compliance-core/inventory"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

func testSigningKey() []byte {
	return []byte("01234567890123456789012345678901")
}

func TestVerifyErasureNotFoundFails(t *testing.T) {
	store := erasure.NewInMemoryStore()
	kms := keymanagement.NewInMemoryProvider()
	svc := NewService(store, kms, Options{})

	result := svc.VerifyErasure(context.Background(), "nonexistent")
	assert.False(t, result.Verified)
}

func TestVerifyErasurePassesWhenKeyDeletedAndCertificateValid(t *testing.T) {
	ctx := context.Background()
	kms := keymanagement.NewInMemoryProvider()
	key, err := kms.RotateKey(ctx, "key-1", keymanagement.AlgorithmAESGCM, "pii", nil)
	require.NoError(t, err)

	invStore := inventory.NewInMemoryStore()
	require.NoError(t, invStore.RegisterLocation(ctx, inventory.DataLocation{
		TableName: "messages", FieldName: "body", DataCategory: "content",
		DataSubjectIDColumn: "subject_id", KeyIDColumn: "key_id", KeyID: key.KeyID,
	}))
	invSvc := inventory.NewService(invStore, kms)

	auditStore := audit.NewInMemoryStore()
	erasureStore := erasure.NewInMemoryStore()
	erasureSvc, err := erasure.NewService(erasureStore, kms, erasure.Options{
		Inventory: invSvc, SigningKey: testSigningKey(), Audit: auditStore,
	})
	require.NoError(t, err)

	scheduled, err := erasureSvc.RequestErasure(ctx, erasure.Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)
	_, err = erasureSvc.Execute(ctx, scheduled.RequestID)
	require.NoError(t, err)

	signer, err := erasure.NewSigner(testSigningKey())
	require.NoError(t, err)

	verifySvc := NewService(erasureStore, kms, Options{
		Inventory: invSvc,
		Certs:     erasureStore,
		Signer:    signer,
		Audit:     auditStore,
	})

	result := verifySvc.VerifyErasure(ctx, scheduled.RequestID)
	require.True(t, result.Verified, "%+v", result.Methods)
	assert.Empty(t, result.Warnings)
}

func TestVerifyErasureFailsWhenKeyStillResolvable(t *testing.T) {
	ctx := context.Background()
	kms := keymanagement.NewInMemoryProvider()
	key, err := kms.RotateKey(ctx, "key-1", keymanagement.AlgorithmAESGCM, "pii", nil)
	require.NoError(t, err)

	invStore := inventory.NewInMemoryStore()
	require.NoError(t, invStore.RegisterLocation(ctx, inventory.DataLocation{
		TableName: "messages", FieldName: "body", DataCategory: "content",
		DataSubjectIDColumn: "subject_id", KeyIDColumn: "key_id", KeyID: key.KeyID,
	}))
	invSvc := inventory.NewService(invStore, kms)
	// Populate discovery without ever executing an erasure, so the key
	// remains resolvable.
	_, _, err = invSvc.Discover(ctx, "subject-1", inventory.IDType(0), "")
	require.NoError(t, err)

	erasureStore := erasure.NewInMemoryStore()
	verifySvc := NewService(erasureStore, kms, Options{Inventory: invSvc})

	require.NoError(t, erasureStore.SaveRequest(ctx, erasure.Request{RequestID: "req-1", DataSubjectID: "subject-1"},
		erasure.ErasureStatusRecord{RequestID: "req-1", DataSubjectIDHash: erasure.HashSubjectID("subject-1"), Status: erasure.StatusCompleted}))

	result := verifySvc.VerifyErasure(ctx, "req-1")
	assert.False(t, result.Verified)
}

func TestVerifyErasureCertificateTamperDetected(t *testing.T) {
	ctx := context.Background()
	kms := keymanagement.NewInMemoryProvider()
	erasureStore := erasure.NewInMemoryStore()
	erasureSvc, err := erasure.NewService(erasureStore, kms, erasure.Options{SigningKey: testSigningKey()})
	require.NoError(t, err)

	scheduled, err := erasureSvc.RequestErasure(ctx, erasure.Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)
	_, err = erasureSvc.Execute(ctx, scheduled.RequestID)
	require.NoError(t, err)

	cert, found, err := erasureStore.GetCertificate(ctx, scheduled.RequestID)
	require.NoError(t, err)
	require.True(t, found)
	cert.Summary.KeysDeleted += 1
	require.NoError(t, erasureStore.SaveCertificate(ctx, cert))

	signer, err := erasure.NewSigner(testSigningKey())
	require.NoError(t, err)
	verifySvc := NewService(erasureStore, kms, Options{Certs: erasureStore, Signer: signer})

	result := verifySvc.VerifyErasure(ctx, scheduled.RequestID)
	assert.False(t, result.Verified)
}

func TestVerifyErasureWarnsOnFailedAuditEventWithoutFailingWhenKeyAbsent(t *testing.T) {
	ctx := context.Background()
	kms := keymanagement.NewInMemoryProvider()
	erasureStore := erasure.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()

	subjectHash := erasure.HashSubjectID("subject-1")
	require.NoError(t, erasureStore.SaveRequest(ctx, erasure.Request{RequestID: "req-1", DataSubjectID: "subject-1"},
		erasure.ErasureStatusRecord{RequestID: "req-1", DataSubjectIDHash: subjectHash, Status: erasure.StatusCompleted}))
	require.NoError(t, auditStore.Record(ctx, audit.Event{Type: audit.EventDataErasureFailed, SubjectIDHash: subjectHash}))

	verifySvc := NewService(erasureStore, kms, Options{Audit: auditStore})
	result := verifySvc.VerifyErasure(ctx, "req-1")

	require.True(t, result.Verified, "%+v", result.Methods)
	assert.NotEmpty(t, result.Warnings)
}
