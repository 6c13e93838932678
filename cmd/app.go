package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/angeloszaimis/resilience/config"
	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/classifier"
	"github.com/angeloszaimis/resilience/internal/healthcheck"
	"github.com/angeloszaimis/resilience/internal/metrics"
	"github.com/angeloszaimis/resilience/internal/policy"
	"github.com/angeloszaimis/resilience/internal/retry"
)

// app owns the shared resilience components. Each protected operation gets
// its own breaker from the registry and an orchestrator bound to it.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	registry   *circuitbreaker.Registry
	classifier *classifier.Classifier
	policies   *policy.Table
	collector  *metrics.Collector
	prometheus *metrics.PrometheusSink
	monitor    *healthcheck.Monitor

	mutex         sync.Mutex
	orchestrators map[string]*retry.Orchestrator
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	table, err := cfg.PolicyTable()
	if err != nil {
		return nil, fmt.Errorf("policy table: %w", err)
	}

	breakerConfig, err := cfg.BreakerConfig()
	if err != nil {
		return nil, fmt.Errorf("circuit breaker config: %w", err)
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	prom := metrics.NewPrometheusSink(cfg.Metrics.Namespace)

	registry := circuitbreaker.NewRegistry(breakerConfig, log,
		circuitbreaker.WithStateChangeListener(collector),
		circuitbreaker.WithStateChangeListener(prom),
	)

	a := &app{
		cfg:           cfg,
		log:           log,
		registry:      registry,
		classifier:    classifier.New(),
		policies:      table,
		collector:     collector,
		prometheus:    prom,
		orchestrators: make(map[string]*retry.Orchestrator),
	}
	a.monitor = healthcheck.NewMonitor(registry, log, func(c healthcheck.Change) {
		collector.OnStateChange(c.Breaker, c.From, c.To)
	})

	return a, nil
}

// start launches the background workers. They stop with ctx.
func (a *app) start(ctx context.Context) {
	a.collector.Start(ctx)
	go a.monitor.Run(ctx, a.cfg.Monitor.Interval)
}

func (a *app) orchestrator(operation string) *retry.Orchestrator {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if o, ok := a.orchestrators[operation]; ok {
		return o
	}

	o := retry.New(a.registry.Get(operation),
		retry.WithClassifier(a.classifier),
		retry.WithPolicies(a.policies),
		retry.WithLogger(a.log),
		retry.WithEnabled(a.cfg.Retry.Enabled),
	)
	a.orchestrators[operation] = o
	return o
}

// options wires the metrics sinks into a single execution.
func (a *app) options(operation string) retry.Options {
	return retry.Options{
		Name: operation,
		Events: retry.MultiSink{
			a.collector.Sink(operation),
			a.prometheus.Sink(operation),
		},
	}
}

// run executes op for operation and records the outcome.
func run[T any](ctx context.Context, a *app, operation string, op retry.Operation[T]) retry.Outcome[T] {
	out := retry.Execute(ctx, a.orchestrator(operation), op, a.options(operation))
	metrics.RecordOutcome(a.collector, operation, out)
	metrics.ObserveOutcome(a.prometheus, operation, out)
	return out
}
