package dev

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	proxied       *prometheus.CounterVec
	proxyDuration *prometheus.HistogramVec
	fallbacks     prometheus.Counter
	reloads       *prometheus.CounterVec
	clients       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &metrics{
		proxied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalshell",
			Subsystem: "dev",
			Name:      "proxy_requests_total",
			Help:      "Requests forwarded by the dev proxy, by rule prefix and status code",
		}, []string{"prefix", "code"}),

		proxyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signalshell",
			Subsystem: "dev",
			Name:      "proxy_duration_seconds",
			Help:      "Round trip time of proxied requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"prefix"}),

		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "signalshell",
			Subsystem: "dev",
			Name:      "history_fallbacks_total",
			Help:      "Requests answered with the entry document",
		}),

		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalshell",
			Subsystem: "dev",
			Name:      "reloads_total",
			Help:      "Reload messages broadcast to browsers, by type",
		}, []string{"type"}),

		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "signalshell",
			Subsystem: "dev",
			Name:      "reload_clients",
			Help:      "Browsers connected to the reload socket",
		}),
	}
}

func (m *metrics) proxy(prefix string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.proxied.WithLabelValues(prefix, strconv.Itoa(status)).Inc()
	m.proxyDuration.WithLabelValues(prefix).Observe(elapsed.Seconds())
}

func (m *metrics) fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *metrics) reload(kind ReloadMessageType) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(string(kind)).Inc()
}

func (m *metrics) setClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}
