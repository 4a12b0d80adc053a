package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	RequestsByClass = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Responses by status class (2xx, 4xx, 5xx)",
		},
		[]string{"category"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)
)

var (
	FormsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_forms_created_total",
			Help: "Onboarding forms created from the dashboard",
		},
	)

	StepsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_steps_completed_total",
			Help: "Wizard steps saved as completed",
		},
		[]string{"step"},
	)

	FormsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_forms_completed_total",
			Help: "Forms that reached the completed status",
		},
	)

	RemindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_reminders_sent_total",
			Help: "Reminder requests accepted",
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_cache_lookups_total",
			Help: "Form cache lookups by result",
		},
		[]string{"result"},
	)

	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_events_consumed_total",
			Help: "Form events processed by the consumer",
		},
		[]string{"event"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			RequestsByClass,
			RequestsInFlight,
			FormsCreated,
			StepsCompleted,
			FormsCompleted,
			RemindersSent,
			CacheLookups,
			EventsConsumed,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
