package core

import "go.uber.org/atomic"

// RateCounter is a thread-safe 64-bit integer counter that additionally
// tracks rate-of-change since its last observation and since its last
// reset.
type RateCounter struct {
	name  string
	value atomic.Int64

	lastObservedValue atomic.Int64
	lastObservedAt    atomic.Int64 // unix nanoseconds

	resetValue atomic.Int64
	resetAt    atomic.Int64 // unix nanoseconds

	now func() int64
}

func NewRateCounter(name string, nowFn func() int64) *RateCounter {
	if nowFn == nil {
		nowFn = defaultNowNanos
	}
	r := &RateCounter{name: name, now: nowFn}
	n := nowFn()
	r.lastObservedAt.Store(n)
	r.resetAt.Store(n)
	return r
}

func (r *RateCounter) Name() string { return r.name }

func (r *RateCounter) Increment(amount int64) { r.value.Add(amount) }
func (r *RateCounter) Decrement(amount int64) { r.value.Sub(amount) }
func (r *RateCounter) Set(v int64)            { r.value.Store(v) }
func (r *RateCounter) Value() int64           { return r.value.Load() }

// Reset zeros the counter and restarts both the observation window and
// the since-reset window.
func (r *RateCounter) Reset() {
	r.value.Store(0)
	n := r.now()
	r.lastObservedValue.Store(0)
	r.lastObservedAt.Store(n)
	r.resetValue.Store(0)
	r.resetAt.Store(n)
}

// GetRate returns the rate of change (units/second) since the last call
// to GetRate, then advances the observation window. Returns 0 if no time
// has passed since the last observation.
func (r *RateCounter) GetRate() float64 {
	now := r.now()
	prevValue := r.lastObservedValue.Load()
	prevAt := r.lastObservedAt.Load()

	r.lastObservedValue.Store(r.value.Load())
	r.lastObservedAt.Store(now)

	elapsedSeconds := float64(now-prevAt) / 1e9
	if elapsedSeconds <= 0 {
		return 0
	}
	delta := float64(r.value.Load() - prevValue)
	return delta / elapsedSeconds
}

// GetAverageRate returns the average rate of change (units/second) since
// the last Reset. Returns 0 if no time has passed since reset.
func (r *RateCounter) GetAverageRate() float64 {
	now := r.now()
	elapsedSeconds := float64(now-r.resetAt.Load()) / 1e9
	if elapsedSeconds <= 0 {
		return 0
	}
	delta := float64(r.value.Load() - r.resetValue.Load())
	return delta / elapsedSeconds
}

func (r *RateCounter) Snapshot() RateCounterSnapshot {
	return RateCounterSnapshot{
		Name:        r.name,
		Value:       r.Value(),
		Rate:        r.GetRate(),
		AverageRate: r.GetAverageRate(),
	}
}
