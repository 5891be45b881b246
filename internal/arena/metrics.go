package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lasso.arena")

var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasso",
		Subsystem: "arena",
		Name:      "tasks_total",
		Help:      "CUT tasks by outcome (ok, failed).",
	}, []string{"outcome"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lasso",
		Subsystem: "arena",
		Name:      "task_duration_seconds",
		Help:      "Duration of one CUT task.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"source"})

	adaptersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasso",
		Subsystem: "arena",
		Name:      "adapters_total",
		Help:      "Adapted implementations executed.",
	}, []string{"source"})

	sequencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasso",
		Subsystem: "arena",
		Name:      "sequences_total",
		Help:      "Sequence records by result (passed, failed, not_instantiated, skipped).",
	}, []string{"result"})

	writerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasso",
		Subsystem: "arena",
		Name:      "writer_failures_total",
		Help:      "Cell writer calls that failed.",
	}, []string{"op"})

	mutantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lasso",
		Subsystem: "arena",
		Name:      "mutants_total",
		Help:      "Mutants by status.",
	}, []string{"status"})
)
