// Package promexport bridges the compliance runtime's in-process metrics
// core (compliance/metrics/core) onto Prometheus's scrape surface. It is
// intentionally a thin, pull-based adapter: the hot path never touches
// prometheus/client_golang directly (that would reintroduce the
// allocation and locking overhead compliance/metrics/core exists to
// avoid), it only runs once per scrape when Collect is invoked, the way
// the embedding platform's infrastructure/metrics wraps prometheus/client_golang for
// its own externally-facing counters.
package promexport

import (
	"github.com/prometheus/client_golang/prometheus"

	core "github.com/meridian-dispatch/compliance-core/compliance/metrics/core"
)

// Collector adapts a *core.MetricRegistry into a prometheus.Collector.
// Register it with prometheus.Registerer the way the embedding platform registers
// its own collectors in infrastructure/metrics.New.
type Collector struct {
	namespace string
	registry  *core.MetricRegistry
}

// NewCollector builds a Collector. namespace is prefixed to every exported
// metric name ("namespace_name"), matching Prometheus naming convention;
// pass "" to export names unprefixed.
func NewCollector(namespace string, registry *core.MetricRegistry) *Collector {
	return &Collector{namespace: namespace, registry: registry}
}

// Describe intentionally sends no descriptors: the registry's metric set
// is dynamic (labeled counters grow new series at runtime), so this
// collector is declared unchecked via prometheus.Registerer.MustRegister
// the same way teacher code registers collectors whose label values are
// not known ahead of time.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect snapshots the registry and emits one Prometheus metric per
// series. Called synchronously on every scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, snap := range c.registry.Snapshot() {
		name := c.metricName(snap.Name)
		switch snap.Type {
		case core.MetricTypeCounter:
			desc := prometheus.NewDesc(name, "compliance runtime counter", nil, nil)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, snap.Counter.Value)

		case core.MetricTypeGauge:
			desc := prometheus.NewDesc(name, "compliance runtime gauge", nil, nil)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, *snap.Gauge)

		case core.MetricTypeRateCounter:
			valueDesc := prometheus.NewDesc(name, "compliance runtime rate counter value", nil, nil)
			ch <- prometheus.MustNewConstMetric(valueDesc, prometheus.GaugeValue, float64(snap.Rate.Value))
			rateDesc := prometheus.NewDesc(name+"_rate_per_second", "compliance runtime rate counter instantaneous rate", nil, nil)
			ch <- prometheus.MustNewConstMetric(rateDesc, prometheus.GaugeValue, snap.Rate.Rate)

		case core.MetricTypeHistogram:
			buckets := make(map[float64]uint64, len(snap.Histogram.Buckets))
			for _, b := range snap.Histogram.Buckets {
				// core bucket counts are already cumulative, as Prometheus expects.
				buckets[b.UpperBound] = b.Count
			}
			desc := prometheus.NewDesc(name, "compliance runtime histogram", nil, nil)
			ch <- prometheus.MustNewConstHistogram(desc, snap.Histogram.Count, snap.Histogram.Sum, buckets)

		case core.MetricTypeLabeledCounter:
			labelNames := make([]string, 0)
			for i := range snap.Labeled {
				labelNames = make([]string, snap.Labeled[i].Labels.Len())
				for j := range labelNames {
					labelNames[j] = genericLabelName(j)
				}
				break
			}
			desc := prometheus.NewDesc(name, "compliance runtime labeled counter", labelNames, nil)
			for _, series := range snap.Labeled {
				ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(series.Value), series.Labels.Values()...)
			}
		}
	}
}

func (c *Collector) metricName(name string) string {
	if c.namespace == "" {
		return name
	}
	return c.namespace + "_" + name
}

func genericLabelName(index int) string {
	names := []string{"label_a", "label_b", "label_c", "label_d", "label_e"}
	if index < len(names) {
		return names[index]
	}
	return "label_extra"
}
