package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Policy decision metrics
	Decisions        *prometheus.CounterVec
	Denials          *prometheus.CounterVec
	LockoutDecisions *prometheus.CounterVec
	Unlocks          *prometheus.CounterVec
	DecisionLatency  *prometheus.HistogramVec

	// Audit stream metrics
	AuditEventsPublished prometheus.Counter
	AuditEventsFailed    prometheus.Counter
	AuditEventsStored    prometheus.Counter
}

// NewMetrics creates all application metrics and registers them with reg.
// Passing prometheus.DefaultRegisterer exposes them on the default handler.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decisions_total",
			Help:      "Total number of policy decisions by action and outcome",
		}, []string{"action", "outcome"}),
		Denials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "denials_total",
			Help:      "Total number of failed policy steps by policy type",
		}, []string{"policy"}),
		LockoutDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lockout_decisions_total",
			Help:      "Total number of lockout evaluations by resulting lockout type",
		}, []string{"type"}),
		Unlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "unlock_requests_total",
			Help:      "Total number of unlock requests by outcome",
		}, []string{"outcome"}),
		DecisionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decision_duration_seconds",
			Help:      "Time spent evaluating a policy request",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		AuditEventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_events_published_total",
			Help:      "Total number of decision audit events published",
		}),
		AuditEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_events_failed_total",
			Help:      "Total number of decision audit events that could not be published or stored",
		}),
		AuditEventsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_events_stored_total",
			Help:      "Total number of decision audit events persisted by the worker",
		}),
	}
}

// Outcome labels decisions consistently across counters.
func Outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}
