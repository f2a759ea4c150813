// Package metrics exposes evaluation, notification and HTTP counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opticorai/taskeval/internal/application/port"
)

const namespace = "taskeval"

// Recorder implements port.EvaluationMetrics on its own registry
type Recorder struct {
	registry      *prometheus.Registry
	evaluations   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	progressScore prometheus.Histogram
	finalScore    prometheus.Histogram
	statusUpdates prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with Go runtime metrics
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Task evaluations applied, by kind.",
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries, by channel and result.",
		}, []string{"channel", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		progressScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "progress_score",
			Help:      "Computed KPI-weighted progress scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Final scores of evaluated tasks.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		statusUpdates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status_updates_last",
			Help:      "Tasks whose status changed in the last status update run.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.evaluations,
		r.notifications,
		r.httpRequests,
		r.httpDuration,
		r.progressScore,
		r.finalScore,
		r.statusUpdates,
	)
	return r
}

func (r *Recorder) ObserveEvaluation(kind string, finalScore float64) {
	r.evaluations.WithLabelValues(kind).Inc()
	r.finalScore.Observe(finalScore)
}

func (r *Recorder) ObserveProgress(score float64) {
	r.progressScore.Observe(score)
}

func (r *Recorder) ObserveNotification(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifications.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) SetStatusUpdates(n int) {
	r.statusUpdates.Set(float64(n))
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(method, route string, status int, seconds float64) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ port.EvaluationMetrics = (*Recorder)(nil)
