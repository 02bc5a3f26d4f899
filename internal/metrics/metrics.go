package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "account_service"

// Account lifecycle events and their outcomes.
const (
	EventSignup       = "signup"
	EventVerify       = "verify_email"
	EventLogin        = "login"
	EventRefresh      = "refresh"
	EventResetRequest = "reset_request"
	EventReset        = "reset_password"

	OutcomeOK                 = "ok"
	OutcomeAlreadyVerified    = "already_verified"
	OutcomeInvalid            = "invalid"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeNotVerified        = "not_verified"
	OutcomeUnknownEmail       = "unknown_email"
	OutcomeDeliveryFailed     = "delivery_failed"
	OutcomeError              = "error"
)

type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// New registers the service collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_events_total",
				Help:      "Account lifecycle operations by outcome",
			},
			[]string{"event", "outcome"},
		),
	}
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, code).Inc()
	m.duration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

func (m *Metrics) Event(event, outcome string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(event, outcome).Inc()
}
