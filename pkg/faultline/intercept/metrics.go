package intercept

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var interceptedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "faultline_intercepted_total",
		Help: "Total number of faults captured by the interception hooks",
	},
	[]string{"hook"},
)
