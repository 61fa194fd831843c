// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview_analyzer"

type Recorder struct {
	registry             *prometheus.Registry
	analyses             *prometheus.CounterVec
	stageDuration        *prometheus.HistogramVec
	pollChecks           prometheus.Histogram
	inFlight             prometheus.Gauge
	remoteDeleteFailures prometheus.Counter
	remoteDeleteRetries  *prometheus.CounterVec
}

// New builds a Recorder on its own registry so tests never collide with the
// global default registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Finished analyses by outcome (success or failure kind).",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		pollChecks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_poll_checks",
			Help:      "Remote state checks needed before a file left PROCESSING.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyses_in_flight",
			Help:      "Analyses currently holding a temp file.",
		}),
		remoteDeleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_delete_failures_total",
			Help:      "Remote file deletes that failed on the request path.",
		}),
		remoteDeleteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_delete_retries_total",
			Help:      "Background remote delete retries by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.analyses,
		r.stageDuration,
		r.pollChecks,
		r.inFlight,
		r.remoteDeleteFailures,
		r.remoteDeleteRetries,
	)

	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) AnalysisStarted() {
	r.inFlight.Inc()
}

// AnalysisFinished records one terminal outcome.
func (r *Recorder) AnalysisFinished(outcome string) {
	r.inFlight.Dec()
	r.analyses.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) ObservePollChecks(n int) {
	r.pollChecks.Observe(float64(n))
}

func (r *Recorder) RemoteDeleteFailed() {
	r.remoteDeleteFailures.Inc()
}

func (r *Recorder) RemoteDeleteRetried(result string) {
	r.remoteDeleteRetries.WithLabelValues(result).Inc()
}
