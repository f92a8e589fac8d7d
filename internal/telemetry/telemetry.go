// Package telemetry records run statistics as Prometheus metrics.
//
// depscout is a short-lived CLI, so nothing is served over HTTP: the
// metrics are written once per run to a file in the text exposition format,
// ready for the node_exporter textfile collector.
package telemetry

import (
	"errors"
	"time"

	"github.com/nao1215/depscout/internal/github"
	"github.com/nao1215/depscout/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "depscout"

// DefaultScoreBuckets spread over the usual score range.
var DefaultScoreBuckets = []float64{100, 200, 300, 400, 500, 750, 1000, 1500}

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithScoreBuckets sets custom histogram buckets for package scores.
func WithScoreBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.scoreBuckets = buckets
		}
	}
}

// Recorder collects the metrics of one run on a private registry.
// All methods are safe for concurrent use.
type Recorder struct {
	namespace    string
	scoreBuckets []float64
	registry     *prometheus.Registry

	analyses *prometheus.CounterVec
	failures *prometheus.CounterVec
	scores   prometheus.Histogram
	duration prometheus.Histogram
	success  prometheus.Gauge
	lastRun  prometheus.Gauge
}

// New creates a Recorder with its metrics registered.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace:    DefaultNamespace,
		scoreBuckets: DefaultScoreBuckets,
		registry:     prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.analyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "analyses_total",
		Help:      "Package analyses by outcome.",
	}, []string{"outcome"})

	r.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "analysis_failures_total",
		Help:      "Failed package analyses by reason.",
	}, []string{"reason"})

	r.scores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "package_score",
		Help:      "Total score of analyzed packages.",
		Buckets:   r.scoreBuckets,
	})

	r.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of one package analysis.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	})

	r.success = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "run_success",
		Help:      "1 when the last run passed, 0 otherwise.",
	})

	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	})

	r.registry.MustRegister(r.analyses, r.failures, r.scores, r.duration, r.success, r.lastRun)
	return r
}

// Registry exposes the underlying registry, for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObservePackage records one finished analysis that took d.
func (r *Recorder) ObservePackage(p *model.Package, d time.Duration) {
	r.duration.Observe(d.Seconds())

	if p.Failed() {
		r.analyses.WithLabelValues("error").Inc()
		r.failures.WithLabelValues(FailureReason(p.Err)).Inc()
		return
	}

	r.analyses.WithLabelValues("ok").Inc()
	r.scores.Observe(float64(p.Score))
}

// ObserveRun records the outcome of the whole run.
func (r *Recorder) ObserveRun(success bool, at time.Time) {
	if success {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// FailureReason maps an analysis error to a low-cardinality label value.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, model.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, model.ErrPackageNotFound):
		return "not_found"
	case errors.Is(err, model.ErrDataUnavailable), errors.Is(err, model.ErrUnsupportedRepository):
		return "unavailable"
	case errors.Is(err, model.ErrExtraction):
		return "extraction"
	case errors.Is(err, github.ErrAPI):
		return "github_api"
	default:
		return "other"
	}
}
