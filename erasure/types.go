// Package erasure implements the cryptographic-erasure state machine:
// request validation, grace-period scheduling, legal-hold gating,
// inventory-driven key deletion, contributor fan-out, and signed
// certificate generation (spec §4.4). Grounded on the embedding platform's
// service-over-store-interface shape (compare
// infrastructure/accountpool/marble/service.go's claim-then-process loop)
// generalized from account-pool leasing to erasure-request claiming.
package erasure

import (
	"time"

	"github.com/google/uuid"

	ccrypto "github.com/meridian-dispatch/compliance-core/compliance/crypto"
	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// IDType names how data_subject_id should be interpreted.
type IDType int

const (
	IDTypeUserID IDType = iota
	IDTypeEmail
	IDTypeExternalID
	IDTypeNationalID
	IDTypeHash
	IDTypeCustom IDType = 99
)

// Scope names the breadth of an erasure request.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeTenant
	ScopeSelective
)

// LegalBasis names the regulatory basis invoked for an erasure request.
type LegalBasis string

const (
	LegalBasisConsentWithdrawal LegalBasis = "ConsentWithdrawal"
	LegalBasisRightToErasure    LegalBasis = "RightToErasure"
	LegalBasisContractEnded     LegalBasis = "ContractEnded"
	LegalBasisRegulatory        LegalBasis = "Regulatory"
)

// Status is the persisted lifecycle state of an erasure request (spec §3,
// integer tags stable for persistence).
type Status int

const (
	StatusPending Status = iota
	StatusScheduled
	StatusInProgress
	StatusCompleted
	StatusBlockedByLegalHold
	StatusCancelled
	StatusFailed
	StatusPartiallyCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusScheduled:
		return "Scheduled"
	case StatusInProgress:
		return "InProgress"
	case StatusCompleted:
		return "Completed"
	case StatusBlockedByLegalHold:
		return "BlockedByLegalHold"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailed:
		return "Failed"
	case StatusPartiallyCompleted:
		return "PartiallyCompleted"
	default:
		return "Unknown"
	}
}

// Request is an externally submitted erasure intent (spec §3 ErasureRequest).
type Request struct {
	RequestID           string
	DataSubjectID       string
	IDType              IDType
	TenantID            string
	Scope               Scope
	LegalBasis          LegalBasis
	ExternalReference   string
	RequestedBy         string
	RequestedAt         time.Time
	GracePeriodOverride *time.Duration
	DataCategories      []string
	Metadata            map[string]any
}

// Validate enforces spec §4.4's request invariants and fills in a
// generated RequestID/RequestedAt when absent.
func (r *Request) Validate() error {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now()
	}
	if r.DataSubjectID == "" {
		return cerrors.InvalidErasureRequest("data_subject_id must not be empty")
	}
	if r.RequestedBy == "" {
		return cerrors.InvalidErasureRequest("requested_by must not be empty")
	}
	if r.Scope == ScopeTenant && r.TenantID == "" {
		return cerrors.MissingTenant()
	}
	if r.Scope == ScopeSelective && len(r.DataCategories) == 0 {
		return cerrors.MissingCategories()
	}
	return nil
}

// Status grace-period bounds (spec §4.4).
const (
	DefaultGracePeriod = 72 * time.Hour
	MinimumGracePeriod = time.Hour
	MaximumGracePeriod = 30 * 24 * time.Hour
)

// deadlineWindow is the window days_until_deadline is measured against.
const deadlineWindow = 30 * 24 * time.Hour

// EffectiveGracePeriod clamps an optional override into
// [MinimumGracePeriod, MaximumGracePeriod], defaulting to DefaultGracePeriod.
func EffectiveGracePeriod(override *time.Duration) time.Duration {
	grace := DefaultGracePeriod
	if override != nil {
		grace = *override
	}
	if grace < MinimumGracePeriod {
		grace = MinimumGracePeriod
	}
	if grace > MaximumGracePeriod {
		grace = MaximumGracePeriod
	}
	return grace
}

// ErasureStatusRecord is the persisted lifecycle of a request (spec §3
// ErasureStatus).
type ErasureStatusRecord struct {
	RequestID         string
	DataSubjectIDHash string
	TenantID          string
	Status            Status
	RequestedAt       time.Time
	ExecutionAt       time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
	CancellationReason string
	BlockingHoldID    string
	KeysDeleted       int
	KeysSkipped       int
	RecordsAffected   int
	CertificateID     string
	Errors            []string
}

// CanCancel reports whether the request is still cancellable (spec §3).
func (s ErasureStatusRecord) CanCancel() bool {
	return s.Status == StatusPending || s.Status == StatusScheduled
}

// IsExecuted reports whether the request reached a terminal executed state.
func (s ErasureStatusRecord) IsExecuted() bool {
	return s.Status == StatusCompleted || s.Status == StatusPartiallyCompleted
}

// DaysUntilDeadline is max(0, (requested_at + 30d) - now) in whole days.
func (s ErasureStatusRecord) DaysUntilDeadline(now time.Time) int {
	deadline := s.RequestedAt.Add(deadlineWindow)
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours()/24) + boolToInt(remaining%(24*time.Hour) > 0)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// HashSubjectID is the spec's data_subject_id_hash derivation, re-exported
// for callers that only import erasure.
func HashSubjectID(subjectID string) string {
	return ccrypto.HashSubjectID(subjectID)
}
