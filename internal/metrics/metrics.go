// Package metrics exposes Prometheus counters for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksTotal counts processed webhook requests by terminal status.
	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gitrelay_webhooks_total",
		Help: "Webhook requests processed, by terminal status.",
	}, []string{"status"})

	// DeliveriesTotal counts outbound notification dispatches by result.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gitrelay_deliveries_total",
		Help: "Notification dispatches, by result.",
	}, []string{"result"})

	// DeliveryAttempts counts individual address-form attempts.
	DeliveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitrelay_delivery_attempts_total",
		Help: "Individual delivery attempts across all address forms.",
	})

	// SignatureFailures counts rejected webhook signatures.
	SignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gitrelay_signature_failures_total",
		Help: "Webhook requests rejected for an invalid signature.",
	})
)
