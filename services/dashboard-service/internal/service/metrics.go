package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_aggregation_duration_seconds",
		Help:    "Duration of dashboard aggregations in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "strategy"})

	aggregationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_aggregation_errors_total",
		Help: "Total number of failed dashboard aggregations",
	}, []string{"operation"})

	droppedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_dropped_records_total",
		Help: "Total number of malformed upstream records dropped during normalization",
	}, []string{"kind"})

	upcomingDrivesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_upcoming_drives",
		Help: "Number of upcoming drives seen by the last overview",
	})
)
