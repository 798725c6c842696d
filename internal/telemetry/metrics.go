package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики планировщика.
var (
	JobsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autopost_jobs_pending",
		Help: "Number of one-shot jobs waiting for their fire time",
	})

	JobsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopost_jobs_fired_total",
		Help: "Total jobs whose callback was invoked",
	}, []string{"kind"})

	JobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopost_job_failures_total",
		Help: "Total job callbacks that returned an error or panicked",
	}, []string{"kind"})
)

// Метрики жизненного цикла постов.
var (
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopost_posts_created_total",
		Help: "Total posts created, by mode (immediate or scheduled)",
	}, []string{"mode"})

	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autopost_posts_published_total",
		Help: "Total scheduled posts published by their publish job",
	})

	PostsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopost_posts_removed_total",
		Help: "Total posts removed, by reason (user or expired)",
	}, []string{"reason"})

	StoreSaveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autopost_store_save_errors_total",
		Help: "Total failed writes of the post storage file",
	})

	NotifyDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autopost_notify_dropped_total",
		Help: "Total events dropped before reaching the notifier (queue full or shutdown)",
	})
)
