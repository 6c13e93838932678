package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/retry"
)

// PrometheusSink exports retry and breaker activity to its own registry.
type PrometheusSink struct {
	registry *prometheus.Registry

	failedAttempts *prometheus.CounterVec
	retries        *prometheus.CounterVec
	successes      *prometheus.CounterVec
	aborts         *prometheus.CounterVec
	executions     *prometheus.CounterVec
	delays         *prometheus.HistogramVec
	durations      *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
}

func NewPrometheusSink(namespace string) *PrometheusSink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusSink{
		registry: reg,
		failedAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_attempts_total",
				Help:      "Total number of failed attempts",
			},
			[]string{"operation"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retries started",
			},
			[]string{"operation"},
		),
		successes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "successes_total",
				Help:      "Total number of successful executions",
			},
			[]string{"operation"},
		),
		aborts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aborts_total",
				Help:      "Total number of executions stopped early",
			},
			[]string{"operation", "reason"},
		),
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of finished executions by result",
			},
			[]string{"operation", "result"},
		),
		delays: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backoff_delay_seconds",
				Help:      "Backoff delay between attempts in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Execution time including retries in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"breaker"},
		),
	}
}

func (p *PrometheusSink) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *PrometheusSink) Sink(operation string) retry.EventSink {
	return retry.SinkFuncs{
		FailedAttempt: func(error, int) {
			p.failedAttempts.WithLabelValues(operation).Inc()
		},
		Retry: func(error, int) {
			p.retries.WithLabelValues(operation).Inc()
		},
		Success: func(any, int) {
			p.successes.WithLabelValues(operation).Inc()
		},
		Abort: func(_ error, reason string) {
			kind, _, _ := strings.Cut(reason, ":")
			p.aborts.WithLabelValues(operation, kind).Inc()
		},
	}
}

func (p *PrometheusSink) OnStateChange(name string, _, to circuitbreaker.State) {
	p.breakerState.WithLabelValues(name).Set(float64(to))
}

// ObserveOutcome records the delays and result of a finished execution.
func ObserveOutcome[T any](p *PrometheusSink, operation string, out retry.Outcome[T]) {
	for _, d := range out.Delays() {
		p.delays.WithLabelValues(operation).Observe(d.Seconds())
	}
	p.durations.WithLabelValues(operation).Observe(out.TotalTime.Seconds())
	p.executions.WithLabelValues(operation, result(out.Success, out.Aborted, out.CircuitBreakerTripped)).Inc()
}

func result(success, aborted, rejected bool) string {
	switch {
	case success:
		return "success"
	case rejected:
		return "circuit_open"
	case aborted:
		return "aborted"
	default:
		return "failure"
	}
}
