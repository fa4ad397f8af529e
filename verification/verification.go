// Package verification independently re-proves that an erasure actually
// happened, after the fact and without trusting the erasure service's
// own bookkeeping: it checks key absence against the key management
// provider directly, validates the signed certificate, and cross-checks
// the audit trail (spec §4.4 "verification service", §7 propagation
// policy "store lookup failures during verification yield a failed
// verification result, not a thrown error"). Grounded on the embedding platform's
// resilience-wrapper shape (infrastructure/resilience's independent
// health-check composition), generalized from liveness probing to
// erasure re-verification.
package verification

import (
	"context"

	"github.com/meridian-dispatch/compliance-core/compliance/audit"
	"github.com/meridian-dispatch/compliance-core/erasure"
	"github.com/meridian-dispatch/compliance-core/inventory"
	"github.com/meridian-dispatch/compliance-core/keymanagement"
)

// Method names one independent verification technique.
type Method string

const (
	MethodKeyAbsence      Method = "KeyAbsence"
	MethodCertificate     Method = "Certificate"
	MethodAuditTrail      Method = "AuditTrail"
)

// MethodResult is one method's individual verdict.
type MethodResult struct {
	Method Method
	Passed bool
	Reason string
}

// Result is the combined verdict across every method run for a request.
type Result struct {
	RequestID string
	Verified  bool
	Methods   []MethodResult
	Warnings  []string
}

// StatusLookup is the subset of erasure.Service's store the verification
// service reads.
type StatusLookup interface {
	GetStatus(ctx context.Context, requestID string) (erasure.ErasureStatusRecord, bool, error)
}

// InventoryLookup is the subset of *inventory.Service the verification
// service reads to find which keys an erasure should have deleted.
type InventoryLookup interface {
	GetDiscoveredInventoryByHash(ctx context.Context, dataSubjectIDHash string) (inventory.DataInventory, bool, error)
}

// Service runs every independent verification method for a request.
type Service struct {
	status    StatusLookup
	inventory InventoryLookup
	certs     erasure.CertificateStore // optional
	signer    *erasure.Signer          // optional; required if certs is set
	kms       keymanagement.Provider
	auditLog  audit.Store // optional
}

// Options configures a Service.
type Options struct {
	Inventory InventoryLookup          // optional
	Certs     erasure.CertificateStore // optional
	Signer    *erasure.Signer          // optional
	Audit     audit.Store              // optional
}

// NewService constructs a Service.
func NewService(status StatusLookup, kms keymanagement.Provider, opts Options) *Service {
	return &Service{
		status:    status,
		inventory: opts.Inventory,
		certs:     opts.Certs,
		signer:    opts.Signer,
		kms:       kms,
		auditLog:  opts.Audit,
	}
}

// VerifyErasure runs every applicable method for requestID and combines
// their verdicts. A store-lookup failure at any stage produces a failed
// MethodResult rather than propagating as an error (spec §7).
func (s *Service) VerifyErasure(ctx context.Context, requestID string) Result {
	result := Result{RequestID: requestID}

	status, found, err := s.status.GetStatus(ctx, requestID)
	if err != nil || !found {
		reason := "erasure request not found"
		if err != nil {
			reason = err.Error()
		}
		result.Methods = append(result.Methods, MethodResult{Method: MethodKeyAbsence, Passed: false, Reason: reason})
		return result
	}

	keyAbsence := s.verifyKeyAbsence(ctx, status)
	result.Methods = append(result.Methods, keyAbsence)

	if s.certs != nil {
		result.Methods = append(result.Methods, s.verifyCertificate(ctx, requestID))
	}

	if s.auditLog != nil {
		trail, warnings := s.verifyAuditTrail(ctx, status, keyAbsence.Passed)
		result.Methods = append(result.Methods, trail)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Verified = true
	for _, m := range result.Methods {
		if !m.Passed {
			result.Verified = false
			break
		}
	}
	return result
}

// verifyKeyAbsence confirms every key associated with the subject's
// discovered inventory is no longer resolvable through the key
// management provider — the strongest proof an erasure actually
// happened, since it bypasses the erasure service's own records.
func (s *Service) verifyKeyAbsence(ctx context.Context, status erasure.ErasureStatusRecord) MethodResult {
	if s.inventory == nil {
		return MethodResult{Method: MethodKeyAbsence, Passed: true, Reason: "no inventory configured to check"}
	}
	inv, found, err := s.inventory.GetDiscoveredInventoryByHash(ctx, status.DataSubjectIDHash)
	if err != nil {
		return MethodResult{Method: MethodKeyAbsence, Passed: false, Reason: err.Error()}
	}
	if !found || len(inv.AssociatedKeys) == 0 {
		return MethodResult{Method: MethodKeyAbsence, Passed: true, Reason: "no associated keys on record"}
	}
	for _, ref := range inv.AssociatedKeys {
		if _, err := s.kms.GetKey(ctx, ref.KeyID); err == nil {
			return MethodResult{Method: MethodKeyAbsence, Passed: false, Reason: "key " + ref.KeyID + " is still resolvable"}
		}
	}
	return MethodResult{Method: MethodKeyAbsence, Passed: true}
}

// verifyCertificate confirms a signed certificate exists for requestID
// and its signature still matches its fields.
func (s *Service) verifyCertificate(ctx context.Context, requestID string) MethodResult {
	cert, found, err := s.certs.GetCertificate(ctx, requestID)
	if err != nil {
		return MethodResult{Method: MethodCertificate, Passed: false, Reason: err.Error()}
	}
	if !found {
		return MethodResult{Method: MethodCertificate, Passed: false, Reason: "no certificate on record"}
	}
	if s.signer == nil {
		return MethodResult{Method: MethodCertificate, Passed: false, Reason: "no signing key configured to verify against"}
	}
	if !s.signer.Verify(cert) {
		return MethodResult{Method: MethodCertificate, Passed: false, Reason: "certificate signature does not match"}
	}
	return MethodResult{Method: MethodCertificate, Passed: true}
}

// verifyAuditTrail confirms an execution event was recorded for the
// subject. Observed DataErasure.Failed events become warnings rather
// than failures when key absence already confirms deletion occurred —
// an erasure can log partial contributor failures and still have fully
// destroyed the key (spec §7 "without flipping verified to false when
// the KMS confirms deletion").
func (s *Service) verifyAuditTrail(ctx context.Context, status erasure.ErasureStatusRecord, keyAbsenceConfirmed bool) (MethodResult, []string) {
	events, err := s.auditLog.Query(ctx, audit.Filter{SubjectIDHash: status.DataSubjectIDHash})
	if err != nil {
		return MethodResult{Method: MethodAuditTrail, Passed: false, Reason: err.Error()}, nil
	}

	var sawExecuted bool
	var warnings []string
	for _, e := range events {
		switch e.Type {
		case audit.EventDataErasureExecuted:
			sawExecuted = true
		case audit.EventDataErasureFailed:
			if keyAbsenceConfirmed {
				warnings = append(warnings, "observed DataErasure.Failed event for a subject whose key is confirmed absent")
			}
		}
	}

	if !sawExecuted && !keyAbsenceConfirmed {
		return MethodResult{Method: MethodAuditTrail, Passed: false, Reason: "no DataErasure.Executed event found"}, warnings
	}
	return MethodResult{Method: MethodAuditTrail, Passed: true}, warnings
}
