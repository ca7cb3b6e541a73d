// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Weighings ──────────────────────────────────────────────────────────────

// WeighingsTotal counts weighing steps by kind (first, second, final).
var WeighingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "weighbridge",
	Subsystem: "records",
	Name:      "weighings_total",
	Help:      "Total weighing steps recorded, by kind.",
}, []string{"kind"})

// NetWeightKg accumulates billed net weight.
var NetWeightKg = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "weighbridge",
	Subsystem: "records",
	Name:      "net_weight_kg_total",
	Help:      "Absolute net weight of completed weighings in kilograms.",
})

// ExpensesTotal counts expense entries.
var ExpensesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "weighbridge",
	Subsystem: "expenses",
	Name:      "created_total",
	Help:      "Total expense entries created.",
})

// ─── Scale ──────────────────────────────────────────────────────────────────

// LiveWeightKg is the latest reading from the indicator.
var LiveWeightKg = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "weighbridge",
	Subsystem: "scale",
	Name:      "live_weight_kg",
	Help:      "Latest live weight received from the indicator.",
})

// ScaleConnected is 1 while the indicator connection is up.
var ScaleConnected = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "weighbridge",
	Subsystem: "scale",
	Name:      "connected",
	Help:      "1 while the indicator WebSocket is connected, 0 otherwise.",
})

// ScaleMessagesDropped counts malformed indicator messages.
var ScaleMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "weighbridge",
	Subsystem: "scale",
	Name:      "messages_dropped_total",
	Help:      "Indicator messages that could not be parsed.",
})

// ScaleReconnects counts dial attempts after the first.
var ScaleReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "weighbridge",
	Subsystem: "scale",
	Name:      "reconnects_total",
	Help:      "Reconnect attempts to the indicator.",
})

// ─── Jobs ───────────────────────────────────────────────────────────────────

// DailyClosings counts scheduled daily closings by outcome.
var DailyClosings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "weighbridge",
	Subsystem: "reports",
	Name:      "daily_closings_total",
	Help:      "Daily closings run by the scheduler, by result.",
}, []string{"result"})
