package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reciperunner_jobs_started_total",
		Help: "Total number of jobs started.",
	})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reciperunner_jobs_finished_total",
		Help: "Total number of jobs that reached a terminal state, labelled by state.",
	}, []string{"state"})

	LiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reciperunner_live_jobs",
		Help: "Number of jobs currently held by the job registry.",
	})

	NodesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reciperunner_nodes_executed_total",
		Help: "Total number of node executions, labelled by block and status.",
	}, []string{"block", "status"})

	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reciperunner_node_duration_ms",
		Help:    "Node execution latency in milliseconds, labelled by block.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	}, []string{"block"})

	SchedulerPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reciperunner_scheduler_passes_total",
		Help: "Total number of scheduler passes over job graphs.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reciperunner_scheduler_queue_utilization_ratio",
		Help: "Current scheduler queue utilization (0–1).",
	})
)
