// Package metrics provides Prometheus metrics for islandcalc.
// Counters and gauges for calculations, sessions, the price feed and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Calculations ───────────────────────────────────────────────────────────

// Calculations counts ComputeAll runs by entry point (api, session, cli).
var Calculations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "islandcalc",
	Name:      "calculations_total",
	Help:      "Total earnings calculations performed.",
}, []string{"source"})

// CapBound counts calculations whose cycle yield hit the cap.
var CapBound = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "islandcalc",
	Name:      "cap_bound_total",
	Help:      "Calculations where the cycle cap limited earnings.",
})

// ─── Sessions ───────────────────────────────────────────────────────────────

// SessionsActive tracks live calculator sessions.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "islandcalc",
	Name:      "sessions_active",
	Help:      "Number of live calculator sessions.",
})

// SessionsCreated counts sessions started.
var SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "islandcalc",
	Name:      "sessions_created_total",
	Help:      "Total calculator sessions created.",
})

// ─── Price Feed ─────────────────────────────────────────────────────────────

// PriceFetches counts price refresh attempts by outcome
// (ok, cached, throttled, circuit_open, error).
var PriceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "islandcalc",
	Name:      "price_fetches_total",
	Help:      "Price feed refresh attempts by outcome.",
}, []string{"outcome"})

// PriceFetchLatency tracks outbound price request duration.
var PriceFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "islandcalc",
	Name:      "price_fetch_latency_seconds",
	Help:      "Price feed request duration in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// TokenPriceUSD is the last known-good spot price.
var TokenPriceUSD = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "islandcalc",
	Name:      "token_price_usd",
	Help:      "Last known-good token price in USD.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus reports 1 for healthy, 0 for failing, per check.
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "islandcalc",
	Name:      "health_check_status",
	Help:      "Health check status (1=healthy, 0=failing).",
}, []string{"check"})
