package erasure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dispatch/compliance-core/inventory"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
	"github.com/meridian-dispatch/compliance-core/legalhold"
)

func testSigningKey() []byte {
	return []byte("01234567890123456789012345678901")
}

func newTestService(t *testing.T, opts Options) (*Service, *InMemoryStore, *keymanagement.InMemoryProvider) {
	t.Helper()
	store := NewInMemoryStore()
	kms := keymanagement.NewInMemoryProvider()
	opts.SigningKey = testSigningKey()
	svc, err := NewService(store, kms, opts)
	require.NoError(t, err)
	return svc, store, kms
}

func TestRequestErasureSchedulesWithDefaultGracePeriod(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	req := Request{DataSubjectID: "subject-1", RequestedBy: "admin"}

	result, err := svc.RequestErasure(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, result.Status)
	assert.WithinDuration(t, time.Now().Add(DefaultGracePeriod), result.ExecutionAt, 5*time.Second)
}

func TestRequestErasureClampsGracePeriodOverrideToMinimum(t *testing.T) {
	svc, store, _ := newTestService(t, Options{})
	override := time.Minute
	req := Request{DataSubjectID: "subject-1", RequestedBy: "admin", GracePeriodOverride: &override}

	result, err := svc.RequestErasure(context.Background(), req)
	require.NoError(t, err)

	status, found, err := store.GetStatus(context.Background(), result.RequestID)
	require.NoError(t, err)
	require.True(t, found)
	assert.WithinDuration(t, status.RequestedAt.Add(MinimumGracePeriod), status.ExecutionAt, 5*time.Second)
}

func TestRequestErasureRejectsMissingSubject(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	_, err := svc.RequestErasure(context.Background(), Request{RequestedBy: "admin"})
	assert.Error(t, err)
}

type blockingHoldChecker struct {
	hold  legalhold.LegalHold
	found bool
}

func (b blockingHoldChecker) FindBlockingHold(ctx context.Context, dataSubjectIDHash, tenantID string) (legalhold.LegalHold, bool, error) {
	return b.hold, b.found, nil
}

func TestRequestErasureBlockedByLegalHoldMentionsCaseReference(t *testing.T) {
	hold := legalhold.LegalHold{HoldID: "hold-1", CaseReference: "CASE-2026-007", IsActive: true}
	svc, _, _ := newTestService(t, Options{LegalHold: blockingHoldChecker{hold: hold, found: true}})

	req := Request{DataSubjectID: "subject-1", RequestedBy: "admin"}
	result, err := svc.RequestErasure(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CASE-2026-007")
	assert.Equal(t, StatusBlockedByLegalHold, result.Status)
	assert.Equal(t, "hold-1", result.BlockingHoldID)
}

func TestGetStatusReturnsNotFoundForUnknownRequest(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	_, found, err := svc.GetStatus(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCancelErasureSucceedsWhileScheduled(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	result, err := svc.RequestErasure(context.Background(), Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	cancelled, err := svc.CancelErasure(context.Background(), result.RequestID, "user requested")
	require.NoError(t, err)
	assert.True(t, cancelled)

	status, _, err := svc.GetStatus(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, status.Status)
}

func TestCancelErasureRejectsAfterInProgress(t *testing.T) {
	svc, store, _ := newTestService(t, Options{})
	result, err := svc.RequestErasure(context.Background(), Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	scheduled := StatusScheduled
	ok, err := store.UpdateStatus(context.Background(), result.RequestID, StatusInProgress, &scheduled)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.CancelErasure(context.Background(), result.RequestID, "too late")
	assert.Error(t, err)
}

func TestExecuteDeletesAssociatedKeysAndCompletes(t *testing.T) {
	kms := keymanagement.NewInMemoryProvider()
	ctx := context.Background()

	key, err := kms.RotateKey(ctx, "key-subject-1", keymanagement.AlgorithmAESGCM, "pii", nil)
	require.NoError(t, err)

	invStore := inventory.NewInMemoryStore()
	require.NoError(t, invStore.RegisterLocation(ctx, inventory.DataLocation{
		TableName: "messages", FieldName: "body", DataCategory: "content",
		DataSubjectIDColumn: "subject_id", KeyIDColumn: "key_id", KeyID: key.KeyID,
	}))
	invSvc := inventory.NewService(invStore, kms)

	store := NewInMemoryStore()
	svc, err := NewService(store, kms, Options{Inventory: invSvc, SigningKey: testSigningKey()})
	require.NoError(t, err)

	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	execResult, err := svc.Execute(ctx, result.RequestID)
	require.NoError(t, err)
	assert.True(t, execResult.Success)
	assert.Equal(t, StatusCompleted, execResult.Status)
	assert.NotEmpty(t, execResult.CertificateID)

	_, err = kms.GetKey(ctx, key.KeyID)
	assert.Error(t, err, "key should be gone after deletion")
}

func TestExecuteOnlyOneCallerWinsConcurrentClaim(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	successes := make([]bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := svc.Execute(ctx, result.RequestID)
			successes[idx] = err == nil && res.Success
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one concurrent Execute call should succeed")
}

func TestExecuteBlockedByLegalHoldDoesNotComplete(t *testing.T) {
	hold := legalhold.LegalHold{HoldID: "hold-2", CaseReference: "CASE-2026-099", IsActive: true}
	checker := &toggleHoldChecker{}
	svc, _, _ := newTestService(t, Options{LegalHold: checker})
	ctx := context.Background()

	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	checker.hold, checker.found = hold, true
	execResult, err := svc.Execute(ctx, result.RequestID)
	require.NoError(t, err)
	assert.False(t, execResult.Success)
	assert.Equal(t, StatusBlockedByLegalHold, execResult.Status)
}

type toggleHoldChecker struct {
	hold  legalhold.LegalHold
	found bool
}

func (c *toggleHoldChecker) FindBlockingHold(ctx context.Context, dataSubjectIDHash, tenantID string) (legalhold.LegalHold, bool, error) {
	return c.hold, c.found, nil
}

type stubContributor struct {
	result ContributorResult
	err    error
}

func (c stubContributor) Erase(ctx context.Context, ectx ErasureContext) (ContributorResult, error) {
	return c.result, c.err
}

func TestExecuteSumsContributorRecordsAndSwallowsFailures(t *testing.T) {
	svc, _, _ := newTestService(t, Options{
		Contributors: []Contributor{
			stubContributor{result: ContributorResult{Success: true, RecordsAffected: 3}},
			stubContributor{err: assertError("contributor down")},
		},
	})
	ctx := context.Background()
	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	execResult, err := svc.Execute(ctx, result.RequestID)
	require.NoError(t, err)
	assert.True(t, execResult.Success)
	assert.Equal(t, 3, execResult.RecordsAffected)
	assert.NotEmpty(t, execResult.Errors)
	assert.Equal(t, StatusPartiallyCompleted, execResult.Status)
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestGenerateCertificateIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	_, err = svc.Execute(ctx, result.RequestID)
	require.NoError(t, err)

	first, err := svc.GenerateCertificate(ctx, result.RequestID)
	require.NoError(t, err)
	second, err := svc.GenerateCertificate(ctx, result.RequestID)
	require.NoError(t, err)

	assert.Equal(t, first.CertificateID, second.CertificateID)
}

func TestGenerateCertificateRejectsUnexecutedRequest(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)

	_, err = svc.GenerateCertificate(ctx, result.RequestID)
	assert.Error(t, err)
}

func TestCertificateSignatureVerifiesAndDetectsTampering(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	result, err := svc.RequestErasure(ctx, Request{DataSubjectID: "subject-1", RequestedBy: "admin"})
	require.NoError(t, err)
	_, err = svc.Execute(ctx, result.RequestID)
	require.NoError(t, err)

	cert, err := svc.GenerateCertificate(ctx, result.RequestID)
	require.NoError(t, err)

	signer, err := NewSigner(testSigningKey())
	require.NoError(t, err)
	assert.True(t, signer.Verify(cert))

	cert.Summary.KeysDeleted += 1
	assert.False(t, signer.Verify(cert))
}

func TestNewServiceRejectsShortSigningKey(t *testing.T) {
	store := NewInMemoryStore()
	kms := keymanagement.NewInMemoryProvider()
	_, err := NewService(store, kms, Options{SigningKey: []byte("too-short")})
	assert.Error(t, err)
}
