package legalhold

import (
	"context"

	"github.com/meridian-dispatch/compliance-core/compliance/audit"
	"github.com/meridian-dispatch/compliance-core/compliance/clockctx"
	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	"github.com/meridian-dispatch/compliance-core/internal/worker"
)

// Service wraps a Store with an expiration-sweep background worker that
// auto-releases holds past their ExpiresAt (spec §5 "legal-hold
// expiration" background worker).
type Service struct {
	store Store
	log   *logging.Logger
	audit audit.Store // optional
	sweep *worker.CronWorker
}

// Options configures the expiration sweep.
type Options struct {
	// SweepSchedule is a standard 5-field cron expression for how often
	// to scan for expired holds (default every 15 minutes).
	SweepSchedule string
	Logger        *logging.Logger
	Audit         audit.Store // optional
}

func (o Options) withDefaults() Options {
	if o.SweepSchedule == "" {
		o.SweepSchedule = "*/15 * * * *"
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// NewService constructs a Service with its expiration-sweep worker
// configured but not started; call Start to begin sweeping.
func NewService(store Store, opts Options) (*Service, error) {
	opts = opts.withDefaults()
	s := &Service{store: store, log: opts.Logger, audit: opts.Audit}

	sweep, err := worker.NewCron(worker.CronConfig{
		Name: "legalhold-expiration-sweep",
		Spec: opts.SweepSchedule,
		Fn:   s.sweepExpired,
	})
	if err != nil {
		return nil, err
	}
	s.sweep = sweep
	return s, nil
}

// recordAudit best-effort appends an audit event; a write failure here
// must never fail the legal-hold operation it's describing.
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

// Start launches the expiration sweep loop.
func (s *Service) Start(ctx context.Context) error {
	return s.sweep.Start(ctx)
}

// Stop halts the expiration sweep loop, waiting for it to exit.
func (s *Service) Stop() {
	s.sweep.Stop()
}

func (s *Service) sweepExpired(ctx context.Context) error {
	expiring, err := s.store.ListExpiring(ctx, clockctx.Now(ctx))
	if err != nil {
		s.log.Error(ctx, "legal hold expiration sweep failed to list expiring holds", err, nil)
		return err
	}
	for _, hold := range expiring {
		if _, err := s.store.Release(ctx, hold.HoldID, "system:expiration-sweep", "hold expired"); err != nil {
			s.log.Error(ctx, "legal hold expiration sweep failed to release hold", err, map[string]interface{}{"hold_id": hold.HoldID})
			continue
		}
		s.log.LogAudit(ctx, "legal_hold.released", "legal_hold", hold.HoldID, "expired", map[string]interface{}{"case_reference": hold.CaseReference})
		s.recordAudit(ctx, audit.EventLegalHoldReleased, hold.DataSubjectIDHash, hold.TenantID, hold.HoldID,
			map[string]any{"reason": "expired", "case_reference": hold.CaseReference})
	}
	return nil
}

// Create creates a new active hold.
func (s *Service) Create(ctx context.Context, hold LegalHold) (LegalHold, error) {
	created, err := s.store.Create(ctx, hold)
	if err != nil {
		return LegalHold{}, err
	}
	s.log.LogAudit(ctx, "legal_hold.created", "legal_hold", created.HoldID, "active", map[string]interface{}{"case_reference": created.CaseReference})
	s.recordAudit(ctx, audit.EventLegalHoldPlaced, created.DataSubjectIDHash, created.TenantID, created.HoldID,
		map[string]any{"case_reference": created.CaseReference})
	return created, nil
}

// FindBlockingHold returns the first active hold matching
// (dataSubjectIDHash, tenantID), if any (spec §4.4 "consult the
// legal-hold service").
func (s *Service) FindBlockingHold(ctx context.Context, dataSubjectIDHash, tenantID string) (LegalHold, bool, error) {
	matches, err := s.store.FindActiveMatching(ctx, dataSubjectIDHash, tenantID)
	if err != nil {
		return LegalHold{}, false, err
	}
	if len(matches) == 0 {
		return LegalHold{}, false, nil
	}
	return matches[0], true, nil
}

// Release manually releases a hold.
func (s *Service) Release(ctx context.Context, holdID, releasedBy, reason string) (LegalHold, error) {
	released, err := s.store.Release(ctx, holdID, releasedBy, reason)
	if err != nil {
		return LegalHold{}, err
	}
	s.log.LogAudit(ctx, "legal_hold.released", "legal_hold", holdID, "manual", map[string]interface{}{"reason": reason})
	s.recordAudit(ctx, audit.EventLegalHoldReleased, released.DataSubjectIDHash, released.TenantID, holdID,
		map[string]any{"reason": reason})
	return released, nil
}
