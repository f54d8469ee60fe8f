package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	RefreshJobReasonDeadlineExceeded     = "deadline_exceeded"
	RefreshJobReasonDBLockTimeout        = "db_lock_timeout"
	RefreshJobReasonSerializationFailure = "serialization_failure"
	RefreshJobReasonUniqueViolation      = "unique_violation"
	RefreshJobReasonUnknown              = "unknown"
)

// RefreshMetrics captures statement refresh worker health signals.
type RefreshMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	batchProcessed *prometheus.CounterVec
	runLoopLag     prometheus.Observer
}

var (
	refreshMetricsOnce sync.Once
	refreshMetrics     *RefreshMetrics
)

// Refresh returns the singleton refresh metrics registry.
func Refresh() *RefreshMetrics {
	return RefreshWithConfig(Config{})
}

// RefreshWithConfig returns the singleton refresh metrics registry using config labels.
func RefreshWithConfig(cfg Config) *RefreshMetrics {
	refreshMetricsOnce.Do(func() {
		refreshMetrics = newRefreshMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return refreshMetrics
}

// ResetRefreshMetricsForTest resets the refresh metrics singleton for tests.
func ResetRefreshMetricsForTest() {
	refreshMetricsOnce = sync.Once{}
	refreshMetrics = nil
}

func newRefreshMetrics(registerer prometheus.Registerer, cfg Config) *RefreshMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "creditledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_refresh_job_runs_total",
		Help:        "Refresh worker job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "creditledger_refresh_job_duration_seconds",
		Help:        "Refresh worker job latency to keep statement snapshots fresh.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_refresh_job_timeouts_total",
		Help:        "Refresh worker job timeouts that threaten snapshot freshness.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_refresh_job_errors_total",
		Help:        "Refresh worker job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	batchProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "creditledger_refresh_batch_processed_total",
		Help:        "Refresh worker batch items processed to gauge throughput.",
		ConstLabels: constLabels,
	}, []string{"job", "resource"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "creditledger_refresh_runloop_lag_seconds",
		Help:        "Refresh worker run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		batchProcessed,
		runLoopLag,
	)

	return &RefreshMetrics{
		jobRuns:        jobRuns,
		jobDuration:    jobDuration,
		jobTimeouts:    jobTimeouts,
		jobErrors:      jobErrors,
		batchProcessed: batchProcessed,
		runLoopLag:     runLoopLag,
	}
}

// IncJobRun increments the run counter for a refresh job.
func (m *RefreshMetrics) IncJobRun(job string) {
	if m == nil || m.jobRuns == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration records refresh job latency in seconds.
func (m *RefreshMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil || m.jobDuration == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncJobTimeout increments the timeout counter for the refresh job.
func (m *RefreshMetrics) IncJobTimeout(job string) {
	if m == nil || m.jobTimeouts == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the refresh job error counter with classification.
func (m *RefreshMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil || m.jobErrors == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyRefreshJobReason(err)).Inc()
}

// AddBatchProcessed increments the batch processed counter for a resource by count.
func (m *RefreshMetrics) AddBatchProcessed(job, resource string, count int) {
	if m == nil || count <= 0 || m.batchProcessed == nil {
		return
	}
	m.batchProcessed.WithLabelValues(job, resource).Add(float64(count))
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *RefreshMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil || m.runLoopLag == nil {
		return
	}
	lag := duration
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// ClassifyRefreshJobReason maps refresh job errors to low-cardinality reasons.
func ClassifyRefreshJobReason(err error) string {
	if err == nil {
		return RefreshJobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return RefreshJobReasonDeadlineExceeded
	}
	if isDBLockTimeout(err) {
		return RefreshJobReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return RefreshJobReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return RefreshJobReasonUniqueViolation
	}
	return RefreshJobReasonUnknown
}

// IsRefreshErrorRetryable reports whether the refresh error should be retried.
func IsRefreshErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return isDBLockTimeout(err) || isSerializationFailure(err)
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
