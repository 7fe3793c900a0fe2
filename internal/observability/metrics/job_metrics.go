package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	JobErrorTypeDeadlineExceeded = "deadline_exceeded"
	JobErrorTypeBusinessRule     = "business_rule"
	JobErrorTypeDB               = "db"
	JobErrorTypeUnknown          = "unknown"
)

// JobMetrics captures scheduler job health signals.
type JobMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobTimeouts *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	creatorsRun *prometheus.CounterVec
}

var (
	jobMetricsOnce sync.Once
	jobMetrics     *JobMetrics
)

// Jobs returns the singleton job metrics registry.
func Jobs() *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetrics = &JobMetrics{
			jobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "flywheel_job_runs_total",
				Help: "Scheduler job executions by job name.",
			}, []string{"job"}),
			jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "flywheel_job_duration_seconds",
				Help:    "Scheduler job duration by job name.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			}, []string{"job"}),
			jobTimeouts: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "flywheel_job_timeouts_total",
				Help: "Scheduler job timeouts by job name.",
			}, []string{"job"}),
			jobErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "flywheel_job_errors_total",
				Help: "Scheduler job errors by job name and error type.",
			}, []string{"job", "error_type"}),
			creatorsRun: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "flywheel_invoicing_creators_total",
				Help: "Invoicing run creator outcomes.",
			}, []string{"outcome"}),
		}
	})
	return jobMetrics
}

func (m *JobMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *JobMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *JobMetrics) IncJobError(job string, err error) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, classifyJobError(err)).Inc()
}

// IncInvoicingOutcome counts invoiced/skipped/errored creators per run.
func (m *JobMetrics) IncInvoicingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.creatorsRun.WithLabelValues(outcome).Inc()
}

func classifyJobError(err error) string {
	switch {
	case err == nil:
		return JobErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return JobErrorTypeDeadlineExceeded
	default:
		return JobErrorTypeUnknown
	}
}
