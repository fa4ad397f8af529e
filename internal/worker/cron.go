package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CronWorker runs fn at each occurrence of a cron schedule instead of a
// fixed interval, for operators who want non-uniform sweep cadences (e.g.
// "only sweep during business hours"). It generalizes Worker's fixed-tick
// loop using robfig/cron/v3's expression parser to compute each next
// occurrence, while keeping the same start/stop/join contract.
type CronWorker struct {
	name     string
	schedule cron.Schedule
	fn       func(ctx context.Context) error
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// CronConfig describes a cron-scheduled worker to construct.
type CronConfig struct {
	Name string
	Spec string // standard 5-field cron expression
	Fn   func(ctx context.Context) error
}

// NewCron parses spec with cron.ParseStandard and constructs a CronWorker.
func NewCron(cfg CronConfig) (*CronWorker, error) {
	schedule, err := cron.ParseStandard(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("worker: parse cron spec %q: %w", cfg.Spec, err)
	}
	return &CronWorker{name: cfg.Name, schedule: schedule, fn: cfg.Fn, now: time.Now}, nil
}

// Start launches the background loop. Calling Start while already running
// returns an error rather than silently starting a second loop.
func (w *CronWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker: %s is already running", w.name)
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.run(ctx, stopCh, doneCh)
	return nil
}

// Stop trips the loop token and waits for the loop to exit. Calling Stop
// when not running is a no-op.
func (w *CronWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning reports whether the loop is currently active.
func (w *CronWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *CronWorker) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(doneCh)
	}()

	for {
		next := w.schedule.Next(w.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			if err := w.fn(ctx); err != nil {
				// As with Worker, fn's own logger is responsible for
				// surfacing errors; a missed occurrence never stops the loop.
				_ = err
			}
		}
	}
}
