// Package metrics exposes validator counters to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lingua"

// Metrics holds the validator collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry // registry holds only validator collectors

	rounds       *prometheus.CounterVec   // rounds counts rounds by outcome
	calls        *prometheus.CounterVec   // calls counts miner calls by method and result
	callDuration *prometheus.HistogramVec // callDuration tracks miner call latency
	composite    prometheus.Histogram     // composite tracks the score distribution
	votes        *prometheus.CounterVec   // votes counts vote submissions by result
	degraded     *prometheus.CounterVec   // degraded counts persistence failures by store
	queueLength  prometheus.Gauge         // queueLength is the rotation size
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Validation rounds by outcome.",
		}, []string{"outcome"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "miner_calls_total",
			Help:      "Miner calls by method and result.",
		}, []string{"method", "result"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "miner_call_seconds",
			Help:      "Miner call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 20},
		}, []string{"method"}),
		composite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "composite_score",
			Help:      "Composite score of every evaluated response.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_votes_total",
			Help:      "Weight vote submissions by result.",
		}, []string{"result"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed state writes by store.",
		}, []string{"store"}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round_queue_length",
			Help:      "Number of miners in the rotation.",
		}),
	}

	m.registry.MustRegister(
		m.rounds, m.calls, m.callDuration, m.composite, m.votes, m.degraded, m.queueLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// ObserveCall records one miner call.
func (m *Metrics) ObserveCall(method string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.calls.WithLabelValues(method, result(ok)).Inc()
	m.callDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRound records a finished round.
func (m *Metrics) ObserveRound(outcome string) {
	if m == nil {
		return
	}

	m.rounds.WithLabelValues(outcome).Inc()
}

// ObserveScore records a composite score.
func (m *Metrics) ObserveScore(score float64) {
	if m == nil {
		return
	}

	m.composite.Observe(score)
}

// ObserveVote records a vote submission.
func (m *Metrics) ObserveVote(ok bool) {
	if m == nil {
		return
	}

	m.votes.WithLabelValues(result(ok)).Inc()
}

// ObservePersistenceFailure records a failed state write.
func (m *Metrics) ObservePersistenceFailure(store string) {
	if m == nil {
		return
	}

	m.degraded.WithLabelValues(store).Inc()
}

// SetQueueLength records the rotation size.
func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}

	m.queueLength.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}

	return "error"
}
