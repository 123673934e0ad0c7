// Package metrics exposes Prometheus collectors for pet actions and persistence.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "turtle_bot"

// Metrics bundles the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	actions      *prometheus.CounterVec
	levelUps     prometheus.Counter
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	pets         prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pet",
				Name:      "actions_total",
				Help:      "Pet actions handled, by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		levelUps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pet",
				Name:      "level_ups_total",
				Help:      "Level-ups granted.",
			},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "saves_total",
				Help:      "Snapshot saves, by result.",
			},
			[]string{"result"},
		),
		saveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "save_duration_seconds",
				Help:      "Duration of snapshot saves.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
		),
		pets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pet",
				Name:      "records",
				Help:      "Number of pets in the store.",
			},
		),
	}
	m.registry.MustRegister(m.actions, m.levelUps, m.saves, m.saveDuration, m.pets)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAction counts one engine call.
func (m *Metrics) ObserveAction(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}

// ObserveLevelUp counts one level-up.
func (m *Metrics) ObserveLevelUp() {
	if m == nil {
		return
	}
	m.levelUps.Inc()
}

// ObserveSave records a snapshot save.
func (m *Metrics) ObserveSave(took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
	m.saveDuration.Observe(took.Seconds())
}

// SetPets sets the pet count gauge.
func (m *Metrics) SetPets(n int) {
	if m == nil {
		return
	}
	m.pets.Set(float64(n))
}
