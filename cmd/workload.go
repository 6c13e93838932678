package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/resilience/config"
	"github.com/angeloszaimis/resilience/internal/classifier"
	"github.com/angeloszaimis/resilience/internal/retry"
)

// sampleFailures is what the simulated dependency throws at callers, one
// entry per failure family the classifier knows.
var sampleFailures = []error{
	errors.New("connection reset by peer"),
	errors.New("request timed out after 5s"),
	classifier.NewStatusError(503, "service unavailable"),
	classifier.NewStatusError(429, "too many requests"),
	classifier.NewStatusError(401, "session expired"),
	classifier.NewStatusError(409, "slot already reserved"),
	errors.New("navigation failed: frame was detached"),
	errors.New("something odd happened"),
}

// workload drives a flaky simulated dependency through the orchestrators so
// that the admin endpoints have something to show.
type workload struct {
	app  *app
	cfg  config.WorkloadConfig
	rand func() float64
	pick func(n int) int
	next int
}

func newWorkload(a *app, cfg config.WorkloadConfig) *workload {
	return &workload{
		app:  a,
		cfg:  cfg,
		rand: rand.Float64,
		pick: rand.IntN,
	}
}

func (w *workload) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.app.log.Info("Workload started",
		slog.Int("concurrency", w.cfg.Concurrency),
		slog.Float64("failure_rate", w.cfg.FailureRate))

	for {
		select {
		case <-ctx.Done():
			w.app.log.Info("Workload stopped")
			return
		case <-ticker.C:
			w.round(ctx)
		}
	}
}

// round runs one call per concurrency slot, cycling through the configured
// operation names.
func (w *workload) round(ctx context.Context) []retry.Outcome[string] {
	outcomes := make([]retry.Outcome[string], w.cfg.Concurrency)

	var g errgroup.Group
	for i := range outcomes {
		operation := w.cfg.Operations[w.next%len(w.cfg.Operations)]
		w.next++
		g.Go(func() error {
			outcomes[i] = run(ctx, w.app, operation, w.call(operation))
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		if !out.Success {
			w.app.log.Debug("Workload call failed",
				slog.String("execution_id", out.ExecutionID),
				slog.Int("attempts", out.TotalAttempts()),
				slog.Bool("circuit_open", out.CircuitBreakerTripped))
		}
	}
	return outcomes
}

func (w *workload) call(operation string) retry.Operation[string] {
	return func(ctx context.Context) (string, error) {
		if w.cfg.Latency > 0 {
			timer := time.NewTimer(w.cfg.Latency)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if w.rand() < w.cfg.FailureRate {
			return "", sampleFailures[w.pick(len(sampleFailures))]
		}
		return operation + ": ok", nil
	}
}
