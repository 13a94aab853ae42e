package jobs

import "github.com/prometheus/client_golang/prometheus"

// Метрики фоновых задач (проверка связи, дайджест), метка job — имя задачи.
var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_job_runs_total",
		Help: "Background job runs by result (ok|error|panic)",
	}, []string{"job", "result"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendance_job_duration_seconds",
		Help:    "Background job duration in seconds",
		Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
	}, []string{"job"})

	jobLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "attendance_job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(jobRuns, jobDuration, jobLastSuccess)
}
