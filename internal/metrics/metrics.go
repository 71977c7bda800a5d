package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	logins        *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ejare_login_attempts_total",
			Help: "Login attempts by role and outcome.",
		}, []string{"role", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ejare_contract_transitions_total",
			Help: "Contract lifecycle operations that changed state.",
		}, []string{"transition"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ejare_notifications_total",
			Help: "Notification attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ejare_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.logins, m.transitions, m.notifications, m.httpDuration)
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *Metrics) Login(role, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(label(role), label(outcome)).Inc()
}

func (m *Metrics) Transition(name string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(label(name)).Inc()
}

func (m *Metrics) Notification(channel string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.notifications.WithLabelValues(label(channel), outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, label(route), status).Observe(d.Seconds())
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
