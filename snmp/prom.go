package snmp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromCollector adapts a MetricSet into a prometheus.Collector so hosts
// that already scrape Prometheus can expose engine metrics unchanged.
type PromCollector struct {
	set       *MetricSet
	namespace string
}

// NewPromCollector wraps a metric set. Register it with a prometheus
// registry:
//
//	prometheus.MustRegister(snmp.NewPromCollector("snmpmgr", engine.Metrics()))
func NewPromCollector(namespace string, set *MetricSet) *PromCollector {
	return &PromCollector{set: set, namespace: namespace}
}

// Describe implements prometheus.Collector. Metric names are dynamic, so
// descriptions are emitted at collect time.
func (c *PromCollector) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *PromCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.set.Snapshot()

	for key, value := range snap.Counters {
		name, labels, labelValues := splitMetricKey(key)
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", name),
			"snmpmgr counter", labels, nil)
		m, err := prometheus.NewConstMetric(desc, prometheus.CounterValue, float64(value), labelValues...)
		if err == nil {
			ch <- m
		}
	}

	for key, value := range snap.Gauges {
		name, labels, labelValues := splitMetricKey(key)
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", name),
			"snmpmgr gauge", labels, nil)
		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, float64(value), labelValues...)
		if err == nil {
			ch <- m
		}
	}

	for key, stats := range snap.Histograms {
		name, labels, labelValues := splitMetricKey(key)

		countDesc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", name+"_count"),
			"snmpmgr histogram count", labels, nil)
		if m, err := prometheus.NewConstMetric(countDesc, prometheus.CounterValue, float64(stats.Count), labelValues...); err == nil {
			ch <- m
		}

		sumDesc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", name+"_sum"),
			"snmpmgr histogram sum (ms)", labels, nil)
		if m, err := prometheus.NewConstMetric(sumDesc, prometheus.CounterValue, float64(stats.Sum), labelValues...); err == nil {
			ch <- m
		}
	}
}

// splitMetricKey undoes metricKey: "name|k=v|k2=v2" into a name plus
// label names and values.
func splitMetricKey(key string) (string, []string, []string) {
	parts := splitPipe(key)
	name := parts[0]

	var labels, values []string
	for _, p := range parts[1:] {
		for i := 0; i < len(p); i++ {
			if p[i] == '=' {
				labels = append(labels, p[:i])
				values = append(values, p[i+1:])
				break
			}
		}
	}
	return name, labels, values
}

func splitPipe(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
