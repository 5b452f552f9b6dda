// Package metrics defines the custom Prometheus metrics of the identity API.
// It is the single source of truth for metric names, labels, and help strings.
//
// All metrics are registered with the default registry through promauto on
// package load; the /metrics endpoint exposes them next to the HTTP metrics
// collected by echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Account metrics ───────────────────────────────────────────────────────────

// AccountOperationsTotal counts account lifecycle requests.
// Labels:
//   - operation: "register", "verify_email", "resend_verification" or "login"
//   - result: "success" or the error kind (e.g. "validation", "auth", "conflict")
var AccountOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_operations_total",
		Help:      "Total number of account lifecycle operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailDispatchTotal counts outbound verification emails.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var MailDispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dispatch_total",
		Help:      "Total number of outbound emails, labelled by result.",
	},
	[]string{"result"},
)

// MailQueueDepth tracks the number of emails waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of emails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures a single SMTP delivery.
var MailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of a single email delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// PermissionCacheTotal counts permission cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var PermissionCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_cache_total",
		Help:      "Total number of permission cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// AuthorizationDecisionsTotal counts RequireAction decisions.
// Labels:
//   - action: the required action name
//   - result: "allowed" or "denied"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of action-based authorization decisions.",
	},
	[]string{"action", "result"},
)

// CatalogMutationsTotal counts writes to the role and action catalogs.
// Labels:
//   - entity: "role" or "action"
//   - operation: "create", "update", "delete", "add_action" or "remove_action"
var CatalogMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_mutations_total",
		Help:      "Total number of successful role and action catalog mutations.",
	},
	[]string{"entity", "operation"},
)
