// Package metrics provides Prometheus metrics for the prior authorization engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	ConversionsTotal      *prometheus.CounterVec
	ConversionWarnings    *prometheus.CounterVec
	ConversionDuration    prometheus.Histogram
	VisitsRecorded        prometheus.Counter
	VisitsBlocked         *prometheus.CounterVec
	AuthsExhausted        prometheus.Counter
	TasksCreated          *prometheus.CounterVec
	TasksOverdue          prometheus.Gauge
	KafkaMessagesProduced prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	OutboxPending         prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		ConversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Total conversions by direction (x12_to_fhir, fhir_to_x12, ack) and result",
		}, []string{"direction", "result"}),
		ConversionWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversion_warnings_total",
			Help: "Conversion warnings by code",
		}, []string{"code"}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "conversion_duration_seconds",
			Help:    "Conversion processing duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		VisitsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visits_recorded_total",
			Help: "Total visit usages recorded against authorizations",
		}),
		VisitsBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visits_blocked_total",
			Help: "Visit recordings blocked by validation, by error code",
		}, []string{"code"}),
		AuthsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authorizations_exhausted_total",
			Help: "Authorizations that reached zero remaining visits",
		}),
		TasksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Tasks created by type",
		}, []string{"type"}),
		TasksOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasks_overdue",
			Help: "Open tasks past their due date",
		}),
		KafkaMessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.ConversionsTotal,
		m.ConversionWarnings,
		m.ConversionDuration,
		m.VisitsRecorded,
		m.VisitsBlocked,
		m.AuthsExhausted,
		m.TasksCreated,
		m.TasksOverdue,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
