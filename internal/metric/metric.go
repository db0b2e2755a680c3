// Package metric bundles the process-level prometheus collectors.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all operational metrics for the daemon.
type Metrics struct {
	FramesIngested    *prometheus.CounterVec
	DecodeErrors      *prometheus.CounterVec
	AlertsEmitted     *prometheus.CounterVec
	AlertsSuppressed  *prometheus.CounterVec
	Subscribers       prometheus.Gauge
	ProducerConnected *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a Metrics instance registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		FramesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robomon",
				Subsystem: "ingest",
				Name:      "frames_total",
				Help:      "Total number of frames accepted per stream",
			},
			[]string{"stream"},
		),

		DecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robomon",
				Subsystem: "ingest",
				Name:      "decode_errors_total",
				Help:      "Total number of lines rejected by the frame decoder",
			},
			[]string{"stream"},
		),

		AlertsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robomon",
				Subsystem: "alerts",
				Name:      "emitted_total",
				Help:      "Total number of alert events recorded",
			},
			[]string{"stream", "severity"},
		),

		AlertsSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robomon",
				Subsystem: "alerts",
				Name:      "suppressed_total",
				Help:      "Total number of alerts suppressed by the cooldown window",
			},
			[]string{"stream"},
		),

		Subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "robomon",
				Subsystem: "publish",
				Name:      "subscribers",
				Help:      "Number of attached live subscribers",
			},
		),

		ProducerConnected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "robomon",
				Subsystem: "ingest",
				Name:      "producer_connected",
				Help:      "Whether a producer connection is active (0/1) per stream",
			},
			[]string{"stream"},
		),

		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.FramesIngested,
		m.DecodeErrors,
		m.AlertsEmitted,
		m.AlertsSuppressed,
		m.Subscribers,
		m.ProducerConnected,
	)

	return m
}

// Handler returns the exposition handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFrame increments the accepted-frame counter
func (m *Metrics) RecordFrame(stream string) {
	if m == nil {
		return
	}
	m.FramesIngested.WithLabelValues(stream).Inc()
}

// RecordDecodeError increments the rejected-line counter
func (m *Metrics) RecordDecodeError(stream string) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(stream).Inc()
}

// RecordAlert increments the emitted-alert counter
func (m *Metrics) RecordAlert(stream, severity string) {
	if m == nil {
		return
	}
	m.AlertsEmitted.WithLabelValues(stream, severity).Inc()
}

// RecordSuppressed increments the suppressed-alert counter
func (m *Metrics) RecordSuppressed(stream string) {
	if m == nil {
		return
	}
	m.AlertsSuppressed.WithLabelValues(stream).Inc()
}

// SetSubscribers updates the live subscriber gauge
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

// SetProducerConnected updates the producer connection gauge
func (m *Metrics) SetProducerConnected(stream string, connected bool) {
	if m == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	m.ProducerConnected.WithLabelValues(stream).Set(value)
}
