package core

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-dispatch/compliance-core/compliance/logging"
)

// OnWindowComplete receives the snapshot array collected at the close of
// each aggregation window.
type OnWindowComplete func([]MetricSnapshot)

// MetricAggregator drives a background ticker that, every windowDuration,
// snapshots every metric in the registry, invokes the callback with the
// result, then resets counters/histograms for the next window. Modeled on
// the embedding platform's worker ticker loop (internal/marble/worker.go): a single
// goroutine, a stop channel, and a done channel so Dispose can block until
// the loop has actually exited.
type MetricAggregator struct {
	registry       *MetricRegistry
	windowDuration time.Duration
	onComplete     OnWindowComplete
	log            *logging.Logger

	mu       sync.Mutex
	disposed bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMetricAggregator constructs an aggregator. It does not start running
// until Start is called. log may be nil, in which case a fallback
// package-wide logger is used (see logging.Default).
func NewMetricAggregator(registry *MetricRegistry, windowDuration time.Duration, onComplete OnWindowComplete, log *logging.Logger) *MetricAggregator {
	if log == nil {
		log = logging.Default()
	}
	return &MetricAggregator{
		registry:       registry,
		windowDuration: windowDuration,
		onComplete:     onComplete,
		log:            log,
	}
}

// Start launches the background aggregation loop. Calling Start twice, or
// after Dispose, is a no-op.
func (a *MetricAggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed || a.stopCh != nil {
		return
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(a.stopCh, a.doneCh)
}

func (a *MetricAggregator) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(a.windowDuration)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.fireWindow()
		}
	}
}

// fireWindow snapshots the registry, invokes the callback, and resets.
// A panic inside the callback is caught and swallowed (spec §4.8 "callback
// exceptions are caught and logged; the timer continues") so one bad
// callback never kills the aggregation loop.
func (a *MetricAggregator) fireWindow() {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error(context.Background(), "metric aggregation callback panicked", nil, map[string]interface{}{"panic": r})
		}
	}()
	snapshot := a.registry.Snapshot()
	a.onComplete(snapshot)
	a.registry.ResetAll()
}

// Dispose stops the background loop and waits for it to exit. Subsequent
// calls, and subsequent Start calls, are no-ops.
func (a *MetricAggregator) Dispose() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.disposed = true
	stopCh, doneCh := a.stopCh, a.doneCh
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}
