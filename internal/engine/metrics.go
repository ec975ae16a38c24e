package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the engine's operational counters. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	turnsTotal          *prometheus.CounterVec
	turnDuration        prometheus.Histogram
	capabilityFailures  *prometheus.CounterVec
	skillFailures       prometheus.Counter
	collectionsStarted  prometheus.Counter
	collectionsComplete prometheus.Counter
}

// NewMetrics registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dialogue_turns_total",
			Help: "Processed turns by domain, intent and outcome.",
		}, []string{"domain", "intent", "outcome"}),
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dialogue_turn_duration_seconds",
			Help:    "End-to-end turn processing latency.",
			Buckets: prometheus.DefBuckets,
		}),
		capabilityFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dialogue_capability_failures_total",
			Help: "Degraded classification/extraction calls.",
		}, []string{"capability"}),
		skillFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogue_skill_failures_total",
			Help: "Skill handler invocations that returned an error.",
		}),
		collectionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogue_slot_collections_started_total",
			Help: "Slot collections opened for incomplete intents.",
		}),
		collectionsComplete: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogue_slot_collections_completed_total",
			Help: "Slot collections that gathered every required slot.",
		}),
	}
}

func (m *Metrics) observeTurn(domainName, intent, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(domainName, intent, outcome).Inc()
	m.turnDuration.Observe(seconds)
}

func (m *Metrics) capabilityFailure(capability string) {
	if m == nil {
		return
	}
	m.capabilityFailures.WithLabelValues(capability).Inc()
}

func (m *Metrics) skillFailure() {
	if m == nil {
		return
	}
	m.skillFailures.Inc()
}

func (m *Metrics) collectionStarted() {
	if m == nil {
		return
	}
	m.collectionsStarted.Inc()
}

func (m *Metrics) collectionCompleted() {
	if m == nil {
		return
	}
	m.collectionsComplete.Inc()
}
