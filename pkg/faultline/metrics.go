package faultline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	logEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_log_entries_total",
			Help: "Total number of log entries emitted past the severity threshold",
		},
		[]string{"level"},
	)

	logEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faultline_log_evictions_total",
		Help: "Total number of entries evicted from the bounded history",
	})
)
