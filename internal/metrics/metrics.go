// Package metrics records reconciliation runs as Prometheus metrics on a
// dedicated registry.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
)

// Run status label values.
const (
	StatusSuccess   = "success"
	StatusInvalid   = "invalid_input"
	StatusMalformed = "malformed_document"
	StatusError     = "error"
)

// Recorder implements pipeline.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	records     *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	unmatched   prometheus.Counter
	runDuration *prometheus.HistogramVec
}

var _ pipeline.Recorder = (*Recorder)(nil)

// New creates a Recorder and registers its collectors on a new registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_runs_total",
			Help: "Reconciliation runs by outcome.",
		}, []string{"status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_records_total",
			Help: "Records retained per document role.",
		}, []string{"document"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_rows_dropped_total",
			Help: "Item rows dropped for a missing required field.",
		}, []string{"document"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_rows_skipped_total",
			Help: "Header, total and noise rows skipped.",
		}, []string{"document"}),
		unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_unmatched_secondary_total",
			Help: "Secondary records whose key matched no primary record.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reconciler_run_duration_seconds",
			Help:    "Duration of reconciliation runs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"template"}),
	}
	r.registry.MustRegister(r.runs, r.records, r.dropped, r.skipped, r.unmatched, r.runDuration)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler exposing the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveRun counts a run by outcome and records its duration.
func (r *Recorder) ObserveRun(template string, duration time.Duration, err error) {
	r.runs.WithLabelValues(statusOf(err)).Inc()
	r.runDuration.WithLabelValues(template).Observe(duration.Seconds())
}

// ObserveDocument records the extraction statistics of one document.
func (r *Recorder) ObserveDocument(role string, stats pipeline.DocumentStats) {
	r.records.WithLabelValues(role).Add(float64(stats.Records))
	r.dropped.WithLabelValues(role).Add(float64(stats.Dropped))
	r.skipped.WithLabelValues(role).Add(float64(stats.Skipped))
}

// ObserveUnmatched adds unmatched secondary records.
func (r *Recorder) ObserveUnmatched(count int) {
	r.unmatched.Add(float64(count))
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, docerrors.ErrInvalidInput):
		return StatusInvalid
	case errors.Is(err, docerrors.ErrMalformedDocument):
		return StatusMalformed
	default:
		return StatusError
	}
}
