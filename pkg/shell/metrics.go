package shell

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	transitions *prometheus.CounterVec
	retained    prometheus.Gauge
	evictions   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalshell",
			Subsystem: "shell",
			Name:      "transitions_total",
			Help:      "View transitions committed, by history kind and outcome",
		}, []string{"kind", "outcome"}),

		retained: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "signalshell",
			Subsystem: "shell",
			Name:      "retained_views",
			Help:      "Keep-alive view instances currently retained",
		}),

		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "signalshell",
			Subsystem: "shell",
			Name:      "view_evictions_total",
			Help:      "Keep-alive view instances evicted from the cache",
		}),
	}
}

func (m *metrics) transition(kind, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, outcome).Inc()
}

func (m *metrics) setRetained(n int) {
	if m == nil {
		return
	}
	m.retained.Set(float64(n))
}

func (m *metrics) evicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}
