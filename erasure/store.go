package erasure

import "context"

// Store persists erasure requests and their lifecycle state (spec §6
// IErasureStore). Store has no capability-lookup method; the optional
// QueryStore and CertificateStore capabilities are discovered by
// type-asserting a Store, so not every store implementation has to
// provide both.
type Store interface {
	SaveRequest(ctx context.Context, req Request, status ErasureStatusRecord) error
	GetStatus(ctx context.Context, requestID string) (ErasureStatusRecord, bool, error)
	// UpdateStatus atomically transitions requestID to newStatus iff its
	// current status equals expectedFrom (or expectedFrom is nil, meaning
	// "any current status"), returning whether the transition applied.
	UpdateStatus(ctx context.Context, requestID string, newStatus Status, expectedFrom *Status) (bool, error)
	RecordCompletion(ctx context.Context, requestID string, keysDeleted, keysSkipped, recordsAffected int, certificateID string, errs []string) error
	RecordCancellation(ctx context.Context, requestID, reason string) error
}

// QueryStore is an optional capability a Store may also implement (spec
// §6 IErasureQueryStore).
type QueryStore interface {
	GetScheduledRequests(ctx context.Context, max int) ([]ErasureStatusRecord, error)
	ListRequests(ctx context.Context, filter RequestFilter, pageSize, pageOffset int) ([]ErasureStatusRecord, error)
}

// RequestFilter narrows ListRequests results.
type RequestFilter struct {
	Status   *Status
	TenantID string
}

// CertificateStore is an optional capability a Store may also implement
// (spec §6 IErasureCertificateStore).
type CertificateStore interface {
	GetCertificate(ctx context.Context, requestID string) (Certificate, bool, error)
	GetCertificateByID(ctx context.Context, certificateID string) (Certificate, bool, error)
	SaveCertificate(ctx context.Context, cert Certificate) error
}
