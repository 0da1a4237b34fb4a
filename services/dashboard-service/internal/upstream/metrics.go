package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Duration of upstream requests in seconds",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"upstream", "outcome"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_failures_total",
		Help: "Total number of failed upstream requests by failure kind",
	}, []string{"upstream", "kind"})
)
