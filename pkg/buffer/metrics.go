package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/a6b8/trackerAPI/metric"
)

// ringMetrics is nil-safe.
type ringMetrics struct {
	writes prometheus.Counter
	drops  prometheus.Counter
	size   prometheus.Gauge
}

func newRingMetrics(registry *metric.MetricsRegistry, prefix string) (*ringMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &ringMetrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "trackerapi",
			Subsystem:   "buffer",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Total number of buffer writes",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "trackerapi",
			Subsystem:   "buffer",
			Name:        "drops_total",
			ConstLabels: labels,
			Help:        "Total number of items evicted from a full buffer",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "trackerapi",
			Subsystem:   "buffer",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of items in buffer",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_drops", m.drops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ringMetrics) write(size int, evicted bool) {
	if m == nil {
		return
	}
	m.writes.Inc()
	if evicted {
		m.drops.Inc()
	}
	m.size.Set(float64(size))
}

func (m *ringMetrics) setSize(size int) {
	if m != nil {
		m.size.Set(float64(size))
	}
}
