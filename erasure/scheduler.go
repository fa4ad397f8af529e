package erasure

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/meridian-dispatch/compliance-core/compliance/logging"
	"github.com/meridian-dispatch/compliance-core/internal/worker"
)

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	PollInterval time.Duration // default 1m
	BatchSize    int           // default 50
	// ClaimsPerSecond caps how fast the scheduler claims due requests for
	// execution, smoothing a large backlog of simultaneously-due requests
	// into a steady trickle instead of a thundering herd of Execute calls.
	ClaimsPerSecond rate.Limit // default 10
	Logger          *logging.Logger
}

func (o SchedulerOptions) withDefaults() SchedulerOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Minute
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.ClaimsPerSecond <= 0 {
		o.ClaimsPerSecond = 10
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// Scheduler polls a QueryStore for requests whose execution_at has come
// due and runs them through Service.Execute (spec §4.4 "the scheduler
// loop"). It is a thin consumer of Service rather than a second state
// machine: all claim/execute logic lives in Service.Execute, which is
// already safe under concurrent callers via its compare-and-swap claim.
type Scheduler struct {
	svc     *Service
	query   QueryStore
	opts    SchedulerOptions
	limiter *rate.Limiter
	loop    *worker.Worker
	log     *logging.Logger
}

// NewScheduler constructs a Scheduler. query is typically the same Store
// passed to NewService, type-asserted to QueryStore by the caller.
func NewScheduler(svc *Service, query QueryStore, opts SchedulerOptions) *Scheduler {
	opts = opts.withDefaults()
	s := &Scheduler{
		svc:     svc,
		query:   query,
		opts:    opts,
		limiter: rate.NewLimiter(opts.ClaimsPerSecond, 1),
		log:     opts.Logger,
	}
	s.loop = worker.New(worker.Config{
		Name:     "erasure-scheduler",
		Interval: opts.PollInterval,
		Fn:       s.runOnce,
	})
	return s
}

// Start launches the polling loop.
func (s *Scheduler) Start(ctx context.Context) error { return s.loop.Start(ctx) }

// Stop halts the polling loop and waits for it to exit.
func (s *Scheduler) Stop() { s.loop.Stop() }

// runOnce claims and executes every due request up to BatchSize,
// pacing individual Execute calls through the claims rate limiter.
func (s *Scheduler) runOnce(ctx context.Context) error {
	due, err := s.query.GetScheduledRequests(ctx, s.opts.BatchSize)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, status := range due {
		if status.ExecutionAt.After(now) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := s.svc.Execute(ctx, status.RequestID)
		if err != nil {
			s.log.LogAudit(ctx, "erasure.scheduler.error", "erasure_request", status.RequestID, "execute_failed",
				map[string]interface{}{"error": err.Error()})
			continue
		}
		if !result.Success {
			s.log.LogAudit(ctx, "erasure.scheduler.skip", "erasure_request", status.RequestID, "not_claimed", nil)
		}
	}
	return nil
}
