package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HammerMeetNail/socialgraph/internal/models"
)

const namespace = "socialgraph"

// Metrics holds the friendship counters. It satisfies
// services.OutcomeRecorder.
type Metrics struct {
	registry      *prometheus.Registry
	outcomes      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the friendship collectors, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "friendship",
			Name:      "outcomes_total",
			Help:      "Successful friendship operations by outcome.",
		}, []string{"operation", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "friendship",
			Name:      "errors_total",
			Help:      "Failed friendship operations by error kind.",
		}, []string{"operation", "kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "friendship",
			Name:      "notifications_total",
			Help:      "Friend request notifications by delivery result.",
		}, []string{"result"}),
	}
	registry.MustRegister(
		m.outcomes,
		m.errors,
		m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordOutcome(operation string, outcome models.FriendshipOutcome) {
	m.outcomes.WithLabelValues(operation, string(outcome)).Inc()
}

func (m *Metrics) RecordError(operation string, kind string) {
	m.errors.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) RecordNotification(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
