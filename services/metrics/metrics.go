package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API's Prometheus collectors.
type Metrics struct {
	ActionsTotal   *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	DeniedTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sekolah_actions_total",
				Help: "Total number of dispatched actions",
			},
			[]string{"endpoint", "action", "status"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sekolah_action_duration_seconds",
				Help:    "Action handling duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "action"},
		),
		DeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sekolah_actions_denied_total",
				Help: "Total number of actions rejected by the authorization guard",
			},
			[]string{"endpoint", "action"},
		),
	}

	registry.MustRegister(m.ActionsTotal, m.ActionDuration, m.DeniedTotal)
	return m
}

// ObserveAction records one dispatched action. A nil *Metrics is a no-op.
func (m *Metrics) ObserveAction(endpoint, action string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(endpoint, action, strconv.Itoa(status)).Inc()
	m.ActionDuration.WithLabelValues(endpoint, action).Observe(elapsed.Seconds())
	if status == http.StatusForbidden {
		m.DeniedTotal.WithLabelValues(endpoint, action).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
