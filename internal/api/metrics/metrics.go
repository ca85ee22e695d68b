// Package metrics defines and registers all custom Prometheus metrics for the
// timesheet ledger. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

// ── Entry metrics ─────────────────────────────────────────────────────────────

// EntriesSubmittedTotal counts successful submissions.
// Label:
//   - role: role of the submitting actor ("worker", "manager")
var EntriesSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_submitted_total",
		Help:      "Total number of time-log entries submitted.",
	},
	[]string{"role"},
)

// EntryMutationsTotal counts edit and delete attempts.
// Labels:
//   - op: "edit" or "delete"
//   - result: "applied", "noop" (no row in scope) or "error"
var EntryMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entry_mutations_total",
		Help:      "Total number of entry edits and deletions, by outcome.",
	},
	[]string{"op", "result"},
)

// ── Admin metrics ─────────────────────────────────────────────────────────────

// RateUpdatesTotal counts individual items of rate batches.
// Labels:
//   - kind: "user", "customer" or "unknown"
//   - result: "applied", "cleared" or "skipped"
var RateUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_updates_total",
		Help:      "Total number of rate update items processed, by outcome.",
	},
	[]string{"kind", "result"},
)

// AdminCreationsTotal counts add-user and add-customer calls.
// Labels:
//   - kind: "user" or "customer"
//   - result: "created" or "ignored"
var AdminCreationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_creations_total",
		Help:      "Total number of user and customer creations, by outcome.",
	},
	[]string{"kind", "result"},
)

// ── Audit / reporting metrics ─────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditDroppedTotal counts audit events dropped because a worker channel was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped because the queue was full.",
	},
)

// ReportDuration measures how long building a ledger view takes.
// Label:
//   - view: "dashboard", "entries" or "report"
var ReportDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Duration of ledger aggregation requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"view"},
)
