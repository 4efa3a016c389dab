// Package metrics collects and exposes Prometheus metrics.
//
// Everything is registered on a caller-supplied registry rather than the
// global default one, so tests can create an isolated registry per case and
// the server exposes exactly the metrics it registered.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the account counters.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"  // validation failed
	OutcomeConflict = "conflict" // email already registered
	OutcomeRejected = "rejected" // bad credentials, wrong current password
	OutcomeNotFound = "not_found"
	OutcomeError    = "error" // unexpected failure
)

// Recorder is what the service and HTTP layers report to.
type Recorder interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordPasswordChange(outcome string)
	RecordTokenRejected()
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	registrations   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	passwordChanges *prometheus.CounterVec
	tokensRejected  prometheus.Counter
	httpDuration    *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luno_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luno_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		passwordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luno_password_changes_total",
			Help: "Password change attempts by outcome.",
		}, []string{"outcome"}),
		tokensRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "luno_tokens_rejected_total",
			Help: "Requests refused by the authorization gate.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luno_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.passwordChanges,
		c.tokensRejected,
		c.httpDuration,
	)

	return c
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPasswordChange(outcome string) {
	c.passwordChanges.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTokenRejected() {
	c.tokensRejected.Inc()
}

// ObserveHTTPRequest records one request. route should be the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Nop discards everything. Handy in tests that don't care about metrics.
type Nop struct{}

func (Nop) RecordRegistration(string) {}
func (Nop) RecordLogin(string) {}
func (Nop) RecordPasswordChange(string) {}
func (Nop) RecordTokenRejected() {}
func (Nop) ObserveHTTPRequest(string, string, int, time.Duration) {}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
