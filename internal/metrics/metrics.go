// Package metrics holds the Prometheus collectors shared by the board engine and the backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskboard"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	transitions   *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	hoursLogged   prometheus.Counter
	requests      *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "transitions_total",
			Help:      "Drag-drop transition attempts by outcome.",
		}, []string{"outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "status_changes_total",
			Help:      "Persisted task status changes by destination lane.",
		}, []string{"status"}),
		hoursLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "hours_logged_total",
			Help:      "Hours appended to the ledger.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.statusChanges, m.hoursLogged, m.requests)
	}
	return m
}

// ObserveTransition counts one transition attempt.
func (m *Metrics) ObserveTransition(outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(outcome).Inc()
}

// ObserveStatusChange counts a persisted move into status.
func (m *Metrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// ObserveHours adds appended hours.
func (m *Metrics) ObserveHours(hours float64) {
	if m == nil {
		return
	}
	m.hoursLogged.Add(hours)
}

// ObserveRequest records the latency of one API request.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
