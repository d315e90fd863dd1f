package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for dispatched events.
const (
	OutcomeHandled   = "handled"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	// Webhook metrics
	webhookRequests *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec

	// Outbound messaging metrics
	messagingCalls    *prometheus.CounterVec
	messagingDuration *prometheus.HistogramVec
	messagingInFlight prometheus.Gauge

	// Journal metrics
	journalErrors prometheus.Counter

	startTime prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		webhookRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linebot_webhook_requests_total",
				Help: "Total number of webhook callbacks received",
			},
			[]string{"status"}, // status: ok, invalid_signature, malformed, error
		),

		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linebot_webhook_events_total",
				Help: "Total number of webhook events dispatched",
			},
			[]string{"type", "outcome"},
		),

		handlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linebot_handler_duration_seconds",
				Help:    "Time spent in event handlers",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),

		messagingCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linebot_messaging_calls_total",
				Help: "Total number of messaging API calls",
			},
			[]string{"operation", "status"}, // status: success, error
		),

		messagingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linebot_messaging_call_duration_seconds",
				Help:    "Time spent calling the messaging API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		messagingInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "linebot_messaging_sessions_in_flight",
				Help: "Number of messaging client sessions currently held",
			},
		),

		journalErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "linebot_journal_errors_total",
				Help: "Total number of delivery journal failures",
			},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "linebot_start_time_seconds",
				Help: "Unix time the process started",
			},
		),
	}

	registry.MustRegister(
		r.webhookRequests,
		r.webhookEvents,
		r.handlerDuration,
		r.messagingCalls,
		r.messagingDuration,
		r.messagingInFlight,
		r.journalErrors,
		r.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.startTime.Set(float64(time.Now().Unix()))

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordWebhook counts one callback by its final status label.
func (r *Registry) RecordWebhook(status string) {
	if r == nil {
		return
	}
	r.webhookRequests.WithLabelValues(status).Inc()
}

// RecordEvent counts one dispatched event; duration is observed only for
// events that reached a handler.
func (r *Registry) RecordEvent(eventType, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.webhookEvents.WithLabelValues(eventType, outcome).Inc()
	if outcome == OutcomeHandled || outcome == OutcomeFailed {
		r.handlerDuration.WithLabelValues(eventType).Observe(duration.Seconds())
	}
}

// RecordMessagingCall records one outbound API call.
func (r *Registry) RecordMessagingCall(operation string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.messagingCalls.WithLabelValues(operation, status).Inc()
	r.messagingDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SessionAcquired and SessionReleased track held messaging sessions.
func (r *Registry) SessionAcquired() {
	if r == nil {
		return
	}
	r.messagingInFlight.Inc()
}

func (r *Registry) SessionReleased() {
	if r == nil {
		return
	}
	r.messagingInFlight.Dec()
}

// RecordJournalError counts a failed journal write.
func (r *Registry) RecordJournalError() {
	if r == nil {
		return
	}
	r.journalErrors.Inc()
}
