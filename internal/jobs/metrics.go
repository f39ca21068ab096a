package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	// StatusSkipped marks tasks dropped without retry, such as malformed payloads.
	StatusSkipped = "skipped"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rows        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or against the
// default registerer exactly once when registerer is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_jobs_total",
			Help: "Job executions by task type and outcome.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_job_duration_seconds",
			Help:    "Duration of job executions that reached the store.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
		}, []string{"job"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_job_rows_total",
			Help: "Rows written or pruned by background jobs.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "campus_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.duration, m.rows, m.lastSuccess)
	return m
}

// Run instruments a single job execution. A nil Run is a no-op.
type Run struct {
	metrics *Metrics
	job     string
	start   time.Time
	rows    int64
}

// Start begins instrumenting one execution of job.
func (m *Metrics) Start(job string) *Run {
	if m == nil {
		return nil
	}
	return &Run{metrics: m, job: job, start: m.now()}
}

// Rows adds n affected rows to the run.
func (r *Run) Rows(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.rows += n
}

// Finish records the outcome of the run and returns err unchanged.
func (r *Run) Finish(err error) error {
	if r == nil {
		return err
	}
	m := r.metrics
	status := StatusSuccess
	switch {
	case errors.Is(err, asynq.SkipRetry):
		status = StatusSkipped
	case err != nil:
		status = StatusFailure
	}
	m.runs.WithLabelValues(r.job, status).Inc()
	if status == StatusSkipped {
		return err
	}
	now := m.now()
	m.duration.WithLabelValues(r.job).Observe(now.Sub(r.start).Seconds())
	if status == StatusSuccess {
		if r.rows > 0 {
			m.rows.WithLabelValues(r.job).Add(float64(r.rows))
		}
		m.lastSuccess.WithLabelValues(r.job).Set(float64(now.Unix()))
	}
	return err
}
