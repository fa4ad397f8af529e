// Package core implements the compliance runtime's lock-free, in-process
// metrics primitives: counters, gauges, histograms, labeled counters, rate
// counters, and a windowed aggregator. It is deliberately independent of
// any wire format or transport — compliance/metrics/promexport bridges
// snapshots onto Prometheus for the embedding application's scrape
// surface, the way the embedding platform's infrastructure/metrics wraps
// prometheus/client_golang directly, except here the hot-path primitive is
// this package's own lock-free core rather than the Prometheus client
// itself (spec §4.8 requires a bespoke, cache-line-aware design for
// nanosecond-scale hot paths that a general collector library does not
// give control over).
package core

import (
	"encoding/binary"
	"fmt"
)

// MetricType tags the kind of a metric instance.
type MetricType int

const (
	MetricTypeCounter MetricType = iota
	MetricTypeGauge
	MetricTypeHistogram
	MetricTypeLabeledCounter
	MetricTypeRateCounter
)

func (t MetricType) String() string {
	switch t {
	case MetricTypeCounter:
		return "counter"
	case MetricTypeGauge:
		return "gauge"
	case MetricTypeHistogram:
		return "histogram"
	case MetricTypeLabeledCounter:
		return "labeled_counter"
	case MetricTypeRateCounter:
		return "rate_counter"
	default:
		return "unknown"
	}
}

// LabelSet is an ordered, value-equal tuple of label values identifying a
// specific series of a labeled metric. Order is significant: {"a","b"} is
// a distinct series from {"b","a"}.
type LabelSet struct {
	values []string
}

// NewLabelSet builds a LabelSet from the given values in order.
func NewLabelSet(values ...string) LabelSet {
	copied := make([]string, len(values))
	copy(copied, values)
	return LabelSet{values: copied}
}

// Values returns a defensive copy of the underlying label values.
func (l LabelSet) Values() []string {
	out := make([]string, len(l.values))
	copy(out, l.values)
	return out
}

// Len returns the arity of the label set.
func (l LabelSet) Len() int { return len(l.values) }

// key returns a canonical string usable as a map key; each value is
// prefixed with its two-byte length, which avoids ambiguity between e.g.
// ["a,b"] and ["a","b"].
func (l LabelSet) key() string {
	var buf []byte
	for _, v := range l.values {
		buf = append(buf, byte(len(v)>>8), byte(len(v)))
		buf = append(buf, v...)
	}
	return string(buf)
}

// Equal reports structural, order-sensitive equality.
func (l LabelSet) Equal(other LabelSet) bool {
	if len(l.values) != len(other.values) {
		return false
	}
	for i := range l.values {
		if l.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// MetricMetadata describes a registered metric's identity.
type MetricMetadata struct {
	MetricID    string
	Name        string
	Description string
	Unit        string
	Type        MetricType
	LabelNames  []string
}

// NewMetricMetadata constructs metadata, defaulting Description/Unit/
// LabelNames to empty when not provided. Name must not be empty.
func NewMetricMetadata(metricID, name string, metricType MetricType) (MetricMetadata, error) {
	if name == "" {
		return MetricMetadata{}, fmt.Errorf("metrics: metric name must not be empty")
	}
	return MetricMetadata{
		MetricID:   metricID,
		Name:       name,
		Type:       metricType,
		LabelNames: []string{},
	}, nil
}

// CounterSnapshot is a value-equal point-in-time read of a Counter.
type CounterSnapshot struct {
	Name  string
	Value float64
}

// HistogramBucket is one cumulative bucket of a histogram snapshot.
type HistogramBucket struct {
	UpperBound float64
	Count      uint64
}

// HistogramSnapshot is a value-equal point-in-time read of a Histogram.
type HistogramSnapshot struct {
	Name    string
	Count   uint64
	Sum     float64
	Min     float64
	Max     float64
	Mean    float64
	Buckets []HistogramBucket
}

// RateCounterSnapshot is a value-equal point-in-time read of a RateCounter.
type RateCounterSnapshot struct {
	Name        string
	Value       int64
	Rate        float64
	AverageRate float64
}

// MetricSnapshot is the generic envelope the aggregator hands to the
// on_window_complete callback: exactly one of the typed fields is set,
// selected by Type.
type MetricSnapshot struct {
	Type      MetricType
	Name      string
	Counter   *CounterSnapshot
	Gauge     *float64
	Histogram *HistogramSnapshot
	Rate      *RateCounterSnapshot
	Labeled   []LabeledCounterSeriesSnapshot
}

// LabeledCounterSeriesSnapshot is one series of a LabeledCounter snapshot.
type LabeledCounterSeriesSnapshot struct {
	Labels LabelSet
	Value  int64
}

// MetricEntrySize is the fixed, compile-time-constant wire size of a
// packed MetricEntry (spec §3): 8(timestamp) + 1(type) + 1(reserved) +
// 4(metric id hash) + 8(value) + 2(label set id) = 24 bytes.
const MetricEntrySize = 24

// MetricEntry is a fixed-layout record suitable for appending to a
// lock-free ring buffer or memory-mapped log: a timestamp, a type tag,
// one reserved byte for future use, a metric identifier, a value, and a
// label-set identifier.
type MetricEntry struct {
	TimestampTicks int64
	Type           MetricType
	MetricID       uint32
	Value          float64
	LabelSetID     uint16
}

// Marshal packs the entry into its fixed 24-byte layout.
func (e MetricEntry) Marshal() [MetricEntrySize]byte {
	var buf [MetricEntrySize]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.TimestampTicks))
	buf[8] = byte(e.Type)
	// buf[9] reserved
	binary.LittleEndian.PutUint32(buf[10:14], e.MetricID)
	binary.LittleEndian.PutUint64(buf[14:22], asUint64(e.Value))
	binary.LittleEndian.PutUint16(buf[22:24], e.LabelSetID)
	return buf
}

// Unmarshal unpacks a MetricEntry from its fixed 24-byte layout.
func UnmarshalMetricEntry(buf [MetricEntrySize]byte) MetricEntry {
	return MetricEntry{
		TimestampTicks: int64(binary.LittleEndian.Uint64(buf[0:8])),
		Type:           MetricType(buf[8]),
		MetricID:       binary.LittleEndian.Uint32(buf[10:14]),
		Value:          asFloat64(binary.LittleEndian.Uint64(buf[14:22])),
		LabelSetID:     binary.LittleEndian.Uint16(buf[22:24]),
	}
}
