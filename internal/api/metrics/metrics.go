// Package metrics defines and registers all custom Prometheus metrics for
// the identity core. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crm"

// IdentityEventsTotal counts provider webhook events that were handled
// successfully, labelled by event type (user.created, user.updated,
// user.deleted, ignored).
var IdentityEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_events_total",
		Help:      "Total number of identity provider events successfully handled.",
	},
	[]string{"type"},
)

// IdentityEventErrorsTotal counts webhook deliveries rejected or failed,
// labelled by reason (bad_signature, missing_headers, invalid_payload,
// no_primary_email, sync_failed).
var IdentityEventErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_event_errors_total",
		Help:      "Total number of identity provider events that failed handling.",
	},
	[]string{"reason"},
)

// WebhookDedupTotal counts delivery deduplication decisions.
// Label:
//   - result: "hit" (redelivery, skipped) or "miss" (fresh delivery)
var WebhookDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_dedup_total",
		Help:      "Total number of webhook delivery dedup checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// SyncTotal counts identity sync upserts by trigger (webhook/client) and
// result (ok/error).
var SyncTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_sync_total",
		Help:      "Total number of identity sync attempts, labelled by trigger and result.",
	},
	[]string{"trigger", "result"},
)

// AccessDeniedTotal counts request-path gate denials by reason.
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denied_total",
		Help:      "Total number of gate denials, labelled by deny reason.",
	},
	[]string{"reason"},
)
