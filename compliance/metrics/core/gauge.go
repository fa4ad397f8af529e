package core

import (
	"go.uber.org/atomic"
)

// ValueGauge is a thread-safe, 64-bit integer gauge tracking the time of
// its last update.
type ValueGauge struct {
	name        string
	value       atomic.Int64
	lastUpdated atomic.Int64 // unix nanoseconds
	now         func() int64
}

// NewValueGauge constructs a gauge. nowFn defaults to a wall-clock reader
// (unix nanoseconds) if nil; tests may inject a deterministic clock.
func NewValueGauge(name string, nowFn func() int64) *ValueGauge {
	if nowFn == nil {
		nowFn = defaultNowNanos
	}
	return &ValueGauge{name: name, now: nowFn}
}

func (g *ValueGauge) Name() string { return g.name }

func (g *ValueGauge) Set(v int64) {
	g.value.Store(v)
	g.lastUpdated.Store(g.now())
}

func (g *ValueGauge) Increment(amount int64) {
	g.value.Add(amount)
	g.lastUpdated.Store(g.now())
}

func (g *ValueGauge) Decrement(amount int64) {
	g.value.Sub(amount)
	g.lastUpdated.Store(g.now())
}

func (g *ValueGauge) Reset() {
	g.value.Store(0)
	g.lastUpdated.Store(g.now())
}

func (g *ValueGauge) Value() int64 { return g.value.Load() }

// LastUpdated returns the unix-nanosecond timestamp of the most recent
// Set/Increment/Decrement/Reset call.
func (g *ValueGauge) LastUpdated() int64 { return g.lastUpdated.Load() }

func (g *ValueGauge) Snapshot() float64 { return float64(g.Value()) }
