package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report outcomes.
const (
	OutcomeForwarded  = "forwarded"
	OutcomeSampledOut = "sampled_out"
	OutcomeFailed     = "failed"
	OutcomeDropped    = "dropped"
	OutcomeDisabled   = "disabled"
)

var reportsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "faultline_reports_total",
		Help: "Reports handled by the telemetry reporter, by outcome",
	},
	[]string{"outcome"},
)

// RecordDropped counts payloads a sink discarded after accepting them,
// such as queue overflow in an async sink.
func RecordDropped(n int) {
	reportsTotal.WithLabelValues(OutcomeDropped).Add(float64(n))
}
