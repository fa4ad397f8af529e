package keymanagement

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	"github.com/meridian-dispatch/compliance-core/compliance/resilience"
	"github.com/meridian-dispatch/compliance-core/internal/worker"
)

// ReplicationMode describes how the two regions of a MultiRegionProvider
// are kept in sync.
type ReplicationMode int

const (
	ReplicationAsynchronous ReplicationMode = iota
	ReplicationSynchronous
)

// Region identifies one of the two underlying providers a
// MultiRegionProvider composes.
type Region struct {
	RegionID string
	Endpoint string
	Provider Provider
}

// ReplicationStatus reports the multi-region provider's current mode and
// last observed health of each side.
type ReplicationStatus struct {
	Mode            ReplicationMode
	ActiveRegionID  string
	InFailover      bool
	PrimaryHealthy  bool
	SecondaryHealthy bool
	LastSyncAt      time.Time
}

// MultiRegionOptions configures a MultiRegionProvider.
type MultiRegionOptions struct {
	Mode                    ReplicationMode
	HealthCheckInterval     time.Duration // default 30s
	EnableAutomaticFailover bool
	FailoverThreshold       int           // consecutive primary failures before auto-failover
	OperationTimeout        time.Duration // default 10s
	Logger                  *logging.Logger
}

func (o MultiRegionOptions) withDefaults() MultiRegionOptions {
	if o.HealthCheckInterval <= 0 {
		o.HealthCheckInterval = 30 * time.Second
	}
	if o.FailoverThreshold <= 0 {
		o.FailoverThreshold = 3
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// MultiRegionProvider composes a primary and secondary Provider under a
// failover state machine (spec §4.3): exactly one region is "active" at a
// time, and every read/mutate call dispatches to it. A background worker
// polls ListKeys on both regions at HealthCheckInterval to drive automatic
// failover.
type MultiRegionProvider struct {
	primary   Region
	secondary Region
	opts      MultiRegionOptions
	log       *logging.Logger

	mu               sync.Mutex
	activeIsPrimary  bool
	inFailover       bool
	primaryBreaker   *resilience.CircuitBreaker
	primaryHealthy   bool
	secondaryHealthy bool
	lastSyncAt       time.Time

	healthWorker *worker.Worker
	healthLimiter *rate.Limiter
	disposed     bool
}

// NewMultiRegionProvider constructs a provider with the primary region
// active and failover disengaged, matching the state machine's initial
// state.
func NewMultiRegionProvider(primary, secondary Region, opts MultiRegionOptions) *MultiRegionProvider {
	opts = opts.withDefaults()
	p := &MultiRegionProvider{
		primary:          primary,
		secondary:        secondary,
		opts:             opts,
		log:              opts.Logger,
		activeIsPrimary:  true,
		primaryHealthy:   true,
		secondaryHealthy: true,
	}
	p.healthWorker = worker.New(worker.Config{
		Name:     "multi-region-key-provider-health-check",
		Interval: p.opts.HealthCheckInterval,
		Fn:       p.runHealthCheck,
	})
	// Paces the actual dual-region probe calls at the same cadence as the
	// ticker, so a caller driving runHealthCheck directly (tests, a manual
	// trigger) can't flood both regions faster than HealthCheckInterval.
	p.healthLimiter = rate.NewLimiter(rate.Every(p.opts.HealthCheckInterval), 1)
	// The primary side's automatic-failover decision is a circuit breaker
	// over consecutive ListKeys failures: FailoverThreshold consecutive
	// failures trips it open, which engages failover exactly once (spec
	// §4.3's threshold semantics). It never closes itself back up; a
	// recovered primary is only restored via FailbackToPrimary.
	p.primaryBreaker = resilience.New(resilience.Config{
		MaxFailures:   p.opts.FailoverThreshold,
		Timeout:       p.opts.HealthCheckInterval,
		HalfOpenMax:   1,
		OnStateChange: p.onPrimaryBreakerStateChange,
	})
	return p
}

func (p *MultiRegionProvider) onPrimaryBreakerStateChange(_, to resilience.State) {
	if to != resilience.StateOpen {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts.EnableAutomaticFailover && !p.inFailover {
		p.activeIsPrimary = false
		p.inFailover = true
		p.log.LogSecurityEvent(context.Background(), "key_provider.automatic_failover", map[string]interface{}{
			"primary_region":   p.primary.RegionID,
			"secondary_region": p.secondary.RegionID,
			"threshold":        p.opts.FailoverThreshold,
		})
	}
}

// Start launches the background health-check loop.
func (p *MultiRegionProvider) Start(ctx context.Context) error {
	return p.healthWorker.Start(ctx)
}

func (p *MultiRegionProvider) active() Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeIsPrimary {
		return p.primary.Provider
	}
	return p.secondary.Provider
}

func (p *MultiRegionProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.opts.OperationTimeout)
}

func (p *MultiRegionProvider) checkDisposed() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return cerrors.Disposed("keymanagement.MultiRegionProvider")
	}
	return nil
}

func (p *MultiRegionProvider) GetKey(ctx context.Context, keyID string) (Metadata, error) {
	if err := p.checkDisposed(); err != nil {
		return Metadata{}, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.active().GetKey(ctx, keyID)
}

func (p *MultiRegionProvider) GetActiveKey(ctx context.Context, purpose string) (Metadata, error) {
	if err := p.checkDisposed(); err != nil {
		return Metadata{}, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.active().GetActiveKey(ctx, purpose)
}

func (p *MultiRegionProvider) RotateKey(ctx context.Context, keyID string, algorithm Algorithm, purpose string, expiresAt *time.Time) (Metadata, error) {
	if err := p.checkDisposed(); err != nil {
		return Metadata{}, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.active().RotateKey(ctx, keyID, algorithm, purpose, expiresAt)
}

func (p *MultiRegionProvider) ListKeys(ctx context.Context, status *Status, purpose string) ([]Metadata, error) {
	if err := p.checkDisposed(); err != nil {
		return nil, err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.active().ListKeys(ctx, status, purpose)
}

func (p *MultiRegionProvider) DeleteKey(ctx context.Context, keyID string, gracePeriodDays int) error {
	if err := p.checkDisposed(); err != nil {
		return err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.active().DeleteKey(ctx, keyID, gracePeriodDays)
}

func (p *MultiRegionProvider) SuspendKey(ctx context.Context, keyID string, reason string) error {
	if err := p.checkDisposed(); err != nil {
		return err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.active().SuspendKey(ctx, keyID, reason)
}

// ForceFailover switches the active region to secondary. Requires the
// provider not already be in failover and reason to be non-empty.
func (p *MultiRegionProvider) ForceFailover(reason string) error {
	if reason == "" {
		return cerrors.NullArgument("reason")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFailover {
		return cerrors.New(cerrors.KindInvariant, cerrors.CodeInvalidStateTransition, "already in failover")
	}
	p.activeIsPrimary = false
	p.inFailover = true
	p.log.LogAudit(context.Background(), "key_provider.force_failover", "key_provider_region", p.secondary.RegionID, "active", map[string]interface{}{"reason": reason})
	return nil
}

// FailbackToPrimary switches the active region back to primary. Requires
// the provider currently be in failover and reason to be non-empty.
func (p *MultiRegionProvider) FailbackToPrimary(reason string) error {
	if reason == "" {
		return cerrors.NullArgument("reason")
	}
	p.mu.Lock()
	if !p.inFailover {
		p.mu.Unlock()
		return cerrors.New(cerrors.KindInvariant, cerrors.CodeInvalidStateTransition, "not currently in failover")
	}
	p.activeIsPrimary = true
	p.inFailover = false
	p.mu.Unlock()

	p.primaryBreaker.Reset()
	p.log.LogAudit(context.Background(), "key_provider.failback_to_primary", "key_provider_region", p.primary.RegionID, "active", map[string]interface{}{"reason": reason})
	return nil
}

// GetReplicationStatus reports the current mode and health markers.
func (p *MultiRegionProvider) GetReplicationStatus() ReplicationStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	activeID := p.primary.RegionID
	if !p.activeIsPrimary {
		activeID = p.secondary.RegionID
	}
	return ReplicationStatus{
		Mode:             p.opts.Mode,
		ActiveRegionID:   activeID,
		InFailover:       p.inFailover,
		PrimaryHealthy:   p.primaryHealthy,
		SecondaryHealthy: p.secondaryHealthy,
		LastSyncAt:       p.lastSyncAt,
	}
}

// runHealthCheck polls ListKeys on both regions through the primary
// breaker; FailoverThreshold consecutive primary failures trips the
// breaker open, which engages automatic failover via
// onPrimaryBreakerStateChange.
func (p *MultiRegionProvider) runHealthCheck(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if err := p.healthLimiter.Wait(ctx); err != nil {
		return err
	}

	primaryErr := p.primaryBreaker.Execute(ctx, func() error {
		_, err := p.primary.Provider.ListKeys(ctx, nil, "")
		return err
	})
	_, secondaryErr := p.secondary.Provider.ListKeys(ctx, nil, "")

	p.mu.Lock()
	defer p.mu.Unlock()
	p.primaryHealthy = primaryErr == nil
	p.secondaryHealthy = secondaryErr == nil
	p.lastSyncAt = time.Now()
	return nil
}

// Dispose stops the health-check loop and waits for it to exit within a
// bounded wall-clock budget (target < 2s per spec §4.3); double dispose
// is a no-op.
func (p *MultiRegionProvider) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.healthWorker.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
