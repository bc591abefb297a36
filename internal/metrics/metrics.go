package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh results recorded by RefreshTotal.
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshReused    = "reused"
)

// Metrics holds the client-side Prometheus collectors.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RefreshTotal        *prometheus.CounterVec
	SessionTerminations prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finedge_client_requests_total",
				Help: "Total number of API calls issued by the session client",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finedge_client_request_duration_seconds",
				Help:    "Duration of API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finedge_client_refresh_total",
				Help: "Token refresh outcomes",
			},
			[]string{"result"},
		),
		SessionTerminations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finedge_client_session_terminations_total",
				Help: "Sessions cleared after an irrecoverable authorization failure",
			},
		),
	}
}

// ObserveRequest records one HTTP exchange. status 0 means a transport failure.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh records a refresh outcome.
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

// ObserveTermination records a session cleared by the client.
func (m *Metrics) ObserveTermination() {
	if m == nil {
		return
	}
	m.SessionTerminations.Inc()
}
