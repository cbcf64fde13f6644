package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation-specific collectors, registered on the default registry and
// exposed by the same /metrics listener as the HTTP metrics.
var (
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries by event type and handling outcome.",
	}, []string{"event_type", "outcome"})

	AuditOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_outcomes_total",
		Help: "Per-row batch audit outcomes.",
	}, []string{"outcome"})

	AuditScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_scans_total",
		Help: "Batch audit scans by trigger and result.",
	}, []string{"trigger", "result"})
)
