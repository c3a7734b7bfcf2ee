package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autosem_scheduler_job_runs_total",
		Help: "Scheduled job runs by job name and outcome",
	}, []string{"job", "status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autosem_scheduler_job_duration_seconds",
		Help:    "Scheduled job duration by job name",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	jobConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autosem_scheduler_job_consecutive_failures",
		Help: "Current consecutive failure streak by job name",
	}, []string{"job"})
)
