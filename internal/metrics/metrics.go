// Package metrics exposes Prometheus instrumentation for evaluations and
// notification deliveries, plus the HTTP endpoint serving it alongside
// health and readiness probes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/t77yq/sentinel/internal/model"
)

// Recorder translates evaluation and dispatch observations into
// Prometheus series. It satisfies both the orchestrator's and the
// dispatcher's observer interfaces.
type Recorder struct {
	evaluations   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	retries       *prometheus.CounterVec
}

// NewRecorder registers the sentinel collectors on the given registerer
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "evaluations_total",
			Help:      "Evaluations by alert and resulting status.",
		}, []string{"alert", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "evaluation_duration_seconds",
			Help:      "Check execution time per alert.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"alert"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "notifications_total",
			Help:      "Channel delivery outcomes after retries.",
		}, []string{"channel", "outcome"}),

		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "notification_retries_total",
			Help:      "Delivery attempts beyond the first, per channel.",
		}, []string{"channel"}),
	}
}

// ObserveEvaluation implements the orchestrator's Observer
func (r *Recorder) ObserveEvaluation(result *model.ExecutionResult) {
	r.evaluations.WithLabelValues(result.AlertName, string(result.Status)).Inc()
	r.duration.WithLabelValues(result.AlertName).Observe(result.Duration.Seconds())
}

// ObserveNotification implements the dispatcher's DispatchObserver
func (r *Recorder) ObserveNotification(channel string, attempts int, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.notifications.WithLabelValues(channel, outcome).Inc()

	if attempts > 1 {
		r.retries.WithLabelValues(channel).Add(float64(attempts - 1))
	}
}
