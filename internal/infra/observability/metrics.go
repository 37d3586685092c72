package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the registration API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	externalErrors *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	charges        *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	emails         *prometheus.CounterVec
	loginFailures  prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registration_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_registrants_total",
				Help: "Registration attempts by outcome.",
			},
			[]string{"outcome"},
		),
		charges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_charges_total",
				Help: "Certificate charges by outcome.",
			},
			[]string{"outcome"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_webhook_events_total",
				Help: "Payment provider notifications by event and outcome.",
			},
			[]string{"event", "outcome"},
		),
		emails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_emails_total",
				Help: "Confirmation emails by outcome.",
			},
			[]string{"outcome"},
		),
		loginFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "registration_admin_login_failures_total",
				Help: "Rejected admin login attempts.",
			},
		),
	}
}

// RecordHTTPRequest observes one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrRegistration counts a registration attempt.
func (m *Metrics) IncrRegistration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// IncrCharge counts a charge creation attempt.
func (m *Metrics) IncrCharge(outcome string) {
	m.charges.WithLabelValues(outcome).Inc()
}

// IncrWebhookEvent counts a processed provider notification.
func (m *Metrics) IncrWebhookEvent(event, outcome string) {
	m.webhookEvents.WithLabelValues(event, outcome).Inc()
}

// IncrEmail counts a confirmation email delivery attempt.
func (m *Metrics) IncrEmail(outcome string) {
	m.emails.WithLabelValues(outcome).Inc()
}

// IncrLoginFailure counts a rejected admin login.
func (m *Metrics) IncrLoginFailure() {
	m.loginFailures.Inc()
}

// WebhookEventCount returns the cumulative count for an event/outcome pair.
func (m *Metrics) WebhookEventCount(event, outcome string) float64 {
	return counterValue(m.webhookEvents.WithLabelValues(event, outcome))
}

// ChargeCount returns the cumulative count for a charge outcome.
func (m *Metrics) ChargeCount(outcome string) float64 {
	return counterValue(m.charges.WithLabelValues(outcome))
}

// RegistrationCount returns the cumulative count for a registration outcome.
func (m *Metrics) RegistrationCount(outcome string) float64 {
	return counterValue(m.registrations.WithLabelValues(outcome))
}

// EmailCount returns the cumulative count for an email outcome.
func (m *Metrics) EmailCount(outcome string) float64 {
	return counterValue(m.emails.WithLabelValues(outcome))
}

// LoginFailureCount returns the cumulative number of rejected logins.
func (m *Metrics) LoginFailureCount() float64 {
	return counterValue(m.loginFailures)
}

// counterValue extracts the current float64 value of a counter.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
