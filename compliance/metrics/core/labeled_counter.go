package core

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// LabeledCounter is a fixed-arity mapping from LabelSet to an integer
// counter. Series lookup and insertion of a brand-new series are
// serialized through one mutex; adding to a series' value happens after
// the mutex is released and only touches that series' atomic counter.
type LabeledCounter struct {
	name  string
	arity int

	mu     sync.Mutex
	series map[string]*labeledSeries
}

type labeledSeries struct {
	labels LabelSet
	value  atomic.Int64
}

// NewLabeledCounter constructs a labeled counter fixed to the given label
// arity (number of label values every Increment call must supply).
func NewLabeledCounter(name string, arity int) *LabeledCounter {
	return &LabeledCounter{name: name, arity: arity, series: make(map[string]*labeledSeries)}
}

func (c *LabeledCounter) Name() string { return c.name }

// Increment adds value (must be >= 0) to the counter identified by labels,
// creating the series on first use.
func (c *LabeledCounter) Increment(value int64, labels ...string) error {
	if value < 0 {
		return fmt.Errorf("metrics: labeled counter increment must be >= 0, got %d", value)
	}
	if len(labels) != c.arity {
		return fmt.Errorf("metrics: labeled counter %q expects %d labels, got %d", c.name, c.arity, len(labels))
	}
	set := NewLabelSet(labels...)
	key := set.key()

	c.mu.Lock()
	s, ok := c.series[key]
	if !ok {
		s = &labeledSeries{labels: set}
		c.series[key] = s
	}
	c.mu.Unlock()

	s.value.Add(value)
	return nil
}

// Get returns the current value for a label combination, or 0 if unseen.
func (c *LabeledCounter) Get(labels ...string) int64 {
	set := NewLabelSet(labels...)
	c.mu.Lock()
	s, ok := c.series[set.key()]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return s.value.Load()
}

func (c *LabeledCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = make(map[string]*labeledSeries)
}

func (c *LabeledCounter) Snapshot() []LabeledCounterSeriesSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LabeledCounterSeriesSnapshot, 0, len(c.series))
	for _, s := range c.series {
		out = append(out, LabeledCounterSeriesSnapshot{Labels: s.labels, Value: s.value.Load()})
	}
	return out
}
