package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_recovery_decisions_total",
			Help: "Recovery decisions produced, by action",
		},
		[]string{"action"},
	)

	strategyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_strategy_failures_total",
			Help: "Strategy predicates that panicked during resolution",
		},
		[]string{"strategy"},
	)
)
