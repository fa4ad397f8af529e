package erasure

import (
	"context"
	"time"

	"github.com/meridian-dispatch/compliance-core/compliance/audit"
	"github.com/meridian-dispatch/compliance-core/compliance/clockctx"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	"github.com/meridian-dispatch/compliance-core/compliance/resilience"
	"github.com/meridian-dispatch/compliance-core/inventory"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
	"github.com/meridian-dispatch/compliance-core/legalhold"
)

// LegalHoldChecker is the subset of legalhold.Service the erasure
// service depends on; *legalhold.Service satisfies this structurally.
type LegalHoldChecker interface {
	FindBlockingHold(ctx context.Context, dataSubjectIDHash, tenantID string) (legalhold.LegalHold, bool, error)
}

// InventoryDiscoverer is the subset of inventory.Service the erasure
// service depends on; *inventory.Service satisfies this structurally.
type InventoryDiscoverer interface {
	Discover(ctx context.Context, dataSubjectID string, idType inventory.IDType, tenantID string) (inventory.DataInventory, inventory.Summary, error)
}

// ScheduleResult is returned by RequestErasure.
type ScheduleResult struct {
	RequestID      string
	Status         Status
	ExecutionAt    time.Time
	BlockingHoldID string
	BlockingCase   string
	Inventory      *inventory.Summary
}

// ExecutionResult is returned by Execute.
type ExecutionResult struct {
	Success         bool
	Status          Status
	KeysDeleted     int
	KeysSkipped     int
	RecordsAffected int
	CertificateID   string
	Errors          []string
}

// Options configures a Service.
type Options struct {
	LegalHold    LegalHoldChecker // optional
	Inventory    InventoryDiscoverer // optional
	Contributors []Contributor
	SigningKey   []byte
	Logger       *logging.Logger
	Audit        audit.Store // optional; verification reads through this
}

// Service implements spec §4.4's erasure request/execute/certificate
// surface. Grounded on the embedding platform's claim-then-process shape
// (infrastructure/accountpool/marble/service.go's lease loop),
// generalized from account leasing to erasure-request claiming.
type Service struct {
	store        Store
	kms          keymanagement.Provider
	hold         LegalHoldChecker
	inv          InventoryDiscoverer
	contributors []Contributor
	signer       *Signer
	log          *logging.Logger
	audit        audit.Store
}

// NewService constructs a Service. SigningKey must be at least 32 bytes;
// its absence/shortness is a configuration error at construction time
// (spec §4.4).
func NewService(store Store, kms keymanagement.Provider, opts Options) (*Service, error) {
	signer, err := NewSigner(opts.SigningKey)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		store:        store,
		kms:          kms,
		hold:         opts.LegalHold,
		inv:          opts.Inventory,
		contributors: opts.Contributors,
		signer:       signer,
		log:          log,
		audit:        opts.Audit,
	}, nil
}

// recordAudit best-effort appends an audit event through the optional
// audit store; a write failure here must never fail the erasure
// operation it's describing.
func (s *Service) recordAudit(ctx context.Context, eventType audit.EventType, subjectHash, tenantID, resourceID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, audit.Event{
		Type:          eventType,
		TenantID:      tenantID,
		SubjectIDHash: subjectHash,
		ResourceID:    resourceID,
		Details:       details,
	})
}

// RequestErasure validates and schedules req (spec §4.4).
func (s *Service) RequestErasure(ctx context.Context, req Request) (ScheduleResult, error) {
	if err := req.Validate(); err != nil {
		return ScheduleResult{}, err
	}

	subjectHash := HashSubjectID(req.DataSubjectID)

	if s.hold != nil {
		blocking, found, err := s.hold.FindBlockingHold(ctx, subjectHash, req.TenantID)
		if err != nil {
			return ScheduleResult{}, err
		}
		if found {
			s.log.LogAudit(ctx, "erasure.blocked", "erasure_request", req.RequestID, "blocked_by_legal_hold",
				map[string]interface{}{"case_reference": blocking.CaseReference})
			s.recordAudit(ctx, audit.EventDataErasureFailed, subjectHash, req.TenantID, req.RequestID,
				map[string]any{"reason": "blocked_by_legal_hold", "case_reference": blocking.CaseReference})
			return ScheduleResult{
				RequestID:      req.RequestID,
				Status:         StatusBlockedByLegalHold,
				BlockingHoldID: blocking.HoldID,
				BlockingCase:   blocking.CaseReference,
			}, cerrors.BlockedByLegalHold(blocking.CaseReference)
		}
	}

	s.recordAudit(ctx, audit.EventDataErasureRequested, subjectHash, req.TenantID, req.RequestID, nil)

	grace := EffectiveGracePeriod(req.GracePeriodOverride)
	executionAt := req.RequestedAt.Add(grace)

	status := ErasureStatusRecord{
		RequestID:         req.RequestID,
		DataSubjectIDHash: subjectHash,
		TenantID:          req.TenantID,
		Status:            StatusScheduled,
		RequestedAt:       req.RequestedAt,
		ExecutionAt:       executionAt,
	}
	if err := s.store.SaveRequest(ctx, req, status); err != nil {
		return ScheduleResult{}, err
	}

	result := ScheduleResult{RequestID: req.RequestID, Status: StatusScheduled, ExecutionAt: executionAt}
	if s.inv != nil {
		_, summary, err := s.inv.Discover(ctx, req.DataSubjectID, inventory.IDType(req.IDType), req.TenantID)
		if err == nil {
			result.Inventory = &summary
		}
	}

	s.log.LogAudit(ctx, "erasure.scheduled", "erasure_request", req.RequestID, "scheduled",
		map[string]interface{}{"execution_at": executionAt})
	s.recordAudit(ctx, audit.EventDataErasureScheduled, subjectHash, req.TenantID, req.RequestID,
		map[string]any{"execution_at": executionAt})
	return result, nil
}

// GetStatus returns the persisted status for requestID.
func (s *Service) GetStatus(ctx context.Context, requestID string) (ErasureStatusRecord, bool, error) {
	return s.store.GetStatus(ctx, requestID)
}

// CancelErasure cancels requestID if it is still cancellable (spec
// §4.4). Returns false if the request is not found; returns an error if
// the status forbids cancellation.
func (s *Service) CancelErasure(ctx context.Context, requestID, reason string) (bool, error) {
	status, found, err := s.store.GetStatus(ctx, requestID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if !status.CanCancel() {
		return false, cerrors.InvalidStateTransition(status.Status.String(), StatusCancelled.String())
	}
	if err := s.store.RecordCancellation(ctx, requestID, reason); err != nil {
		return false, err
	}
	s.log.LogAudit(ctx, "erasure.cancelled", "erasure_request", requestID, "cancelled", map[string]interface{}{"reason": reason})
	s.recordAudit(ctx, audit.EventDataErasureCancelled, status.DataSubjectIDHash, status.TenantID, requestID,
		map[string]any{"reason": reason})
	return true, nil
}

// Execute runs spec §4.4 execution state machine for requestID.
func (s *Service) Execute(ctx context.Context, requestID string) (ExecutionResult, error) {
	status, found, err := s.store.GetStatus(ctx, requestID)
	if err != nil {
		return ExecutionResult{}, err
	}
	if !found {
		return ExecutionResult{}, cerrors.NotFound("erasure_request", requestID)
	}
	if status.Status != StatusScheduled {
		return ExecutionResult{Success: false, Status: status.Status}, nil
	}

	if s.hold != nil {
		blocking, holdFound, err := s.hold.FindBlockingHold(ctx, status.DataSubjectIDHash, status.TenantID)
		if err != nil {
			return ExecutionResult{}, err
		}
		if holdFound {
			_, _ = s.store.UpdateStatus(ctx, requestID, StatusBlockedByLegalHold, &status.Status)
			s.log.LogAudit(ctx, "erasure.blocked", "erasure_request", requestID, "blocked_by_legal_hold",
				map[string]interface{}{"case_reference": blocking.CaseReference})
			s.recordAudit(ctx, audit.EventDataErasureFailed, status.DataSubjectIDHash, status.TenantID, requestID,
				map[string]any{"reason": "blocked_by_legal_hold", "case_reference": blocking.CaseReference})
			return ExecutionResult{Success: false, Status: StatusBlockedByLegalHold}, nil
		}
	}

	scheduled := StatusScheduled
	claimed, err := s.store.UpdateStatus(ctx, requestID, StatusInProgress, &scheduled)
	if err != nil {
		return ExecutionResult{}, err
	}
	if !claimed {
		return ExecutionResult{Success: false, Status: StatusScheduled}, nil
	}

	keysDeleted, keysSkipped, keyErrs := s.deleteAssociatedKeys(ctx, status)
	recordsAffected, contributorErrs := s.runContributors(ctx, status)
	allErrs := append(keyErrs, contributorErrs...)

	certificateID := ""
	cert, err := s.generateCertificateFor(ctx, requestID, status, keysDeleted, keysSkipped, recordsAffected, allErrs)
	if err == nil {
		certificateID = cert.CertificateID
	}

	if err := s.store.RecordCompletion(ctx, requestID, keysDeleted, keysSkipped, recordsAffected, certificateID, allErrs); err != nil {
		return ExecutionResult{}, err
	}

	s.log.LogAudit(ctx, "erasure.executed", "erasure_request", requestID, "completed", map[string]interface{}{
		"keys_deleted": keysDeleted, "keys_skipped": keysSkipped, "records_affected": recordsAffected,
	})

	eventType := audit.EventDataErasureExecuted
	if len(allErrs) > 0 {
		eventType = audit.EventDataErasureFailed
	}
	s.recordAudit(ctx, eventType, status.DataSubjectIDHash, status.TenantID, requestID, map[string]any{
		"keys_deleted": keysDeleted, "keys_skipped": keysSkipped, "records_affected": recordsAffected, "errors": allErrs,
	})

	finalStatus := StatusCompleted
	if len(allErrs) > 0 {
		finalStatus = StatusPartiallyCompleted
		if keysDeleted == 0 && recordsAffected == 0 {
			finalStatus = StatusFailed
		}
	}

	return ExecutionResult{
		Success:         true,
		Status:          finalStatus,
		KeysDeleted:     keysDeleted,
		KeysSkipped:     keysSkipped,
		RecordsAffected: recordsAffected,
		CertificateID:   certificateID,
		Errors:          allErrs,
	}, nil
}

// deleteAssociatedKeys deletes every key in the subject's discovered
// inventory; per-key failures are swallowed but counted (spec §4.4).
func (s *Service) deleteAssociatedKeys(ctx context.Context, status ErasureStatusRecord) (deleted, skipped int, errs []string) {
	if s.inv == nil {
		return 0, 0, nil
	}
	inv, found, err := lookupInventory(ctx, s.inv, status.DataSubjectIDHash)
	if err != nil || !found {
		return 0, 0, nil
	}
	for _, ref := range inv.AssociatedKeys {
		if err := s.kms.DeleteKey(ctx, ref.KeyID, 0); err != nil {
			skipped++
			errs = append(errs, "key deletion failed for "+ref.KeyID+": "+err.Error())
			continue
		}
		deleted++
	}
	return deleted, skipped, errs
}

// inventoryLookup is the optional capability *inventory.Service offers
// beyond InventoryDiscoverer, letting Execute find already-discovered
// keys without re-running discovery.
type inventoryLookup interface {
	GetDiscoveredInventoryByHash(ctx context.Context, dataSubjectIDHash string) (inventory.DataInventory, bool, error)
}

// lookupInventory fetches a previously discovered inventory if disc
// supports the lookup capability, falling back to no keys when it
// doesn't.
func lookupInventory(ctx context.Context, disc InventoryDiscoverer, subjectHash string) (inventory.DataInventory, bool, error) {
	if l, ok := disc.(inventoryLookup); ok {
		return l.GetDiscoveredInventoryByHash(ctx, subjectHash)
	}
	return inventory.DataInventory{}, false, nil
}

// runContributors fans out to every registered contributor in order,
// summing records_affected and swallowing individual failures (spec §4.4).
// Each contributor call is retried with backoff before being counted as a
// failure, since a contributor is typically a remote store subject to
// the same transient faults as any other network collaborator.
func (s *Service) runContributors(ctx context.Context, status ErasureStatusRecord) (recordsAffected int, errs []string) {
	ectx := ErasureContext{RequestID: status.RequestID, DataSubjectIDHash: status.DataSubjectIDHash, TenantID: status.TenantID}
	for _, contributor := range s.contributors {
		var result ContributorResult
		retryErr := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
			var err error
			result, err = contributor.Erase(ctx, ectx)
			return err
		})
		if retryErr != nil {
			errs = append(errs, "contributor error: "+retryErr.Error())
			continue
		}
		if !result.Success {
			errs = append(errs, "contributor reported failure")
		}
		recordsAffected += result.RecordsAffected
	}
	return recordsAffected, errs
}

// generateCertificateFor builds and persists a certificate for an
// execution that just completed, used internally by Execute so the
// certificate id is available for RecordCompletion.
func (s *Service) generateCertificateFor(ctx context.Context, requestID string, status ErasureStatusRecord, keysDeleted, keysSkipped, recordsAffected int, errs []string) (Certificate, error) {
	now := clockctx.Now(ctx)
	cert := Certificate{
		CertificateID:         newCertificateID(),
		RequestID:             requestID,
		DataSubjectReference:  status.DataSubjectIDHash,
		RequestReceivedAt:     status.RequestedAt,
		CompletedAt:           now,
		Method:                MethodCryptographicErasure,
		Summary:               CertificateSummary{KeysDeleted: keysDeleted, KeysSkipped: keysSkipped, RecordsAffected: recordsAffected},
		Verification:          []string{string(MethodCryptographicErasure)},
		Exceptions:            errs,
		RetainUntil:           now.Add(retentionPeriod),
		FormatVersion:         CertificateFormatVersion,
		GeneratedAt:           now,
	}
	cert.Signature = s.signer.Sign(cert)

	if certStore, ok := s.store.(CertificateStore); ok {
		if err := certStore.SaveCertificate(ctx, cert); err != nil {
			return Certificate{}, err
		}
	}
	return cert, nil
}

// GenerateCertificate returns the certificate for requestID, generating
// and persisting it on first call if the store has no existing one and
// the request has reached an executed terminal state (spec §4.4).
func (s *Service) GenerateCertificate(ctx context.Context, requestID string) (Certificate, error) {
	status, found, err := s.store.GetStatus(ctx, requestID)
	if err != nil {
		return Certificate{}, err
	}
	if !found {
		return Certificate{}, cerrors.NotFound("erasure_request", requestID)
	}
	if !status.IsExecuted() {
		return Certificate{}, cerrors.InvalidStateTransition(status.Status.String(), "certificate-eligible")
	}

	if certStore, ok := s.store.(CertificateStore); ok {
		if existing, found, err := certStore.GetCertificate(ctx, requestID); err == nil && found {
			return existing, nil
		}
	}

	return s.generateCertificateFor(ctx, requestID, status, status.KeysDeleted, status.KeysSkipped, status.RecordsAffected, status.Errors)
}
