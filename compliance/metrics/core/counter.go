package core

import "go.uber.org/atomic"

// SimpleCounter is a non-thread-safe double-valued counter, for call
// sites that already hold an exclusive lock or run single-threaded
// (spec §4.8 "simple").
type SimpleCounter struct {
	name  string
	value float64
}

func NewSimpleCounter(name string) *SimpleCounter {
	return &SimpleCounter{name: name}
}

func (c *SimpleCounter) Increment(amount float64) { c.value += amount }
func (c *SimpleCounter) Value() float64           { return c.value }
func (c *SimpleCounter) Reset()                   { c.value = 0 }

// Counter is a thread-safe, double-valued counter backed by an atomic
// float, used for the registry's general-purpose Counter() metric.
type Counter struct {
	name  string
	value atomic.Float64
}

func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

func (c *Counter) Name() string { return c.name }

func (c *Counter) Increment(amount float64) {
	c.value.Add(amount)
}

func (c *Counter) Value() float64 { return c.value.Load() }

func (c *Counter) Reset() { c.value.Store(0) }

func (c *Counter) Snapshot() CounterSnapshot {
	return CounterSnapshot{Name: c.name, Value: c.Value()}
}
