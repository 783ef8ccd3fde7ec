// Package metrics exposes Prometheus collectors for the framework's
// operational visibility: queue depth, jobs processed, reconstruction
// latency, and epoch lifetimes, grounded on cuemby-warren's
// pkg/metrics package-level var + MustRegister idiom. Advisory only —
// never read from the insert or query hot path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SchedulerQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dynext_scheduler_queue_depth",
		Help: "Current number of jobs queued on the reconstruction scheduler",
	})

	JobsScheduledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynext_scheduler_jobs_scheduled_total",
		Help: "Total jobs scheduled, by job type",
	}, []string{"type"})

	JobsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dynext_scheduler_jobs_completed_total",
		Help: "Total jobs completed, by job type and outcome",
	}, []string{"type", "outcome"})

	JobsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dynext_scheduler_jobs_rejected_total",
		Help: "Total jobs rejected because the scheduler was shutting down",
	})

	ReconstructionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dynext_reconstruction_duration_seconds",
		Help:    "Reconstruction task execution latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"layout"})

	EpochLifetime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dynext_epoch_lifetime_seconds",
		Help:    "Time an epoch remained active before its successor was installed",
		Buckets: prometheus.DefBuckets,
	})

	EpochCurrentSeq = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dynext_epoch_current_seq",
		Help: "Sequence number of the currently installed epoch",
	})

	InvariantViolationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dynext_invariant_violations_total",
		Help: "Total tombstone-density invariant violations detected by the background monitor",
	})
)

func init() {
	prometheus.MustRegister(
		SchedulerQueueDepth,
		JobsScheduledTotal,
		JobsCompletedTotal,
		JobsRejectedTotal,
		ReconstructionDuration,
		EpochLifetime,
		EpochCurrentSeq,
		InvariantViolationsTotal,
	)
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation and observes its duration into obs on Stop.
type Timer struct {
	start time.Time
	obs   prometheus.Observer
}

func NewTimer(obs prometheus.Observer) *Timer {
	return &Timer{start: time.Now(), obs: obs}
}

func (t *Timer) Stop() {
	t.obs.Observe(time.Since(t.start).Seconds())
}
