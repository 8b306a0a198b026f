// Package metrics exports Prometheus metrics for the chat dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/ragdesk/chat"
)

// ChatMetrics tracks chat traffic. It implements the dispatcher's Recorder.
type ChatMetrics struct {
	registry *prometheus.Registry

	exchanges  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	staleDrops *prometheus.CounterVec
	sessions   prometheus.GaugeFunc
}

// NewChatMetrics creates the metrics set. sessionCount reports the number of
// live sessions; pass nil to skip the gauge.
func NewChatMetrics(sessionCount func() int) *ChatMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ChatMetrics{registry: registry}

	m.exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdesk",
			Subsystem: "chat",
			Name:      "exchanges_total",
			Help:      "Total number of completion round-trips",
		},
		[]string{"mode", "status"},
	)
	registry.MustRegister(m.exchanges)

	m.latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragdesk",
			Subsystem: "chat",
			Name:      "exchange_latency_seconds",
			Help:      "Completion round-trip latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)
	registry.MustRegister(m.latency)

	m.staleDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdesk",
			Subsystem: "chat",
			Name:      "stale_drops_total",
			Help:      "Completion responses discarded because the session context changed mid-flight",
		},
		[]string{"mode"},
	)
	registry.MustRegister(m.staleDrops)

	if sessionCount != nil {
		m.sessions = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "ragdesk",
				Subsystem: "chat",
				Name:      "sessions",
				Help:      "Number of live chat sessions",
			},
			func() float64 { return float64(sessionCount()) },
		)
		registry.MustRegister(m.sessions)
	}

	return m
}

// RecordExchange records one completion round-trip.
func (m *ChatMetrics) RecordExchange(mode chat.Mode, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.exchanges.WithLabelValues(string(mode), status).Inc()
	m.latency.WithLabelValues(string(mode)).Observe(duration.Seconds())
}

// RecordStaleDrop records a discarded stale response.
func (m *ChatMetrics) RecordStaleDrop(mode chat.Mode) {
	m.staleDrops.WithLabelValues(string(mode)).Inc()
}

// Handler returns the scrape endpoint handler.
func (m *ChatMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
