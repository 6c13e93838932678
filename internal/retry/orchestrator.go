package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/resilience/internal/backoff"
	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/classifier"
	"github.com/angeloszaimis/resilience/internal/clock"
	"github.com/angeloszaimis/resilience/internal/policy"
)

// Operation is the unit of work being retried. It receives the execution
// context and should stop when that context is done.
type Operation[T any] func(ctx context.Context) (T, error)

// Options tune a single execution.
type Options struct {
	// Name selects operation-name policy overrides and labels logs.
	Name string
	// Category, when set, replaces the classified category. The abort
	// verdict of the classifier still applies.
	Category *classifier.Category
	// Policy is applied last, on top of category and name policies.
	Policy             *policy.Override
	SkipCircuitBreaker bool
	// Timeout bounds the whole execution, including backoff waits.
	Timeout time.Duration
	Events  EventSink
}

// Orchestrator holds no per-call state; the breaker is the only thing it
// shares between executions.
type Orchestrator struct {
	enabled    bool
	breaker    *circuitbreaker.CircuitBreaker
	classifier *classifier.Classifier
	policies   *policy.Table
	backoff    *backoff.Calculator
	scheduler  Scheduler
	clock      clock.Clock
	logger     *slog.Logger
	newID      func() string
}

type Option func(*Orchestrator)

func WithClassifier(c *classifier.Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

func WithPolicies(t *policy.Table) Option {
	return func(o *Orchestrator) {
		o.policies = t
	}
}

func WithBackoff(c *backoff.Calculator) Option {
	return func(o *Orchestrator) {
		o.backoff = c
	}
}

func WithScheduler(s Scheduler) Option {
	return func(o *Orchestrator) {
		o.scheduler = s
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithEnabled turns retrying off globally. A disabled orchestrator runs
// each operation exactly once and never touches the breaker.
func WithEnabled(enabled bool) Option {
	return func(o *Orchestrator) {
		o.enabled = enabled
	}
}

// New creates an Orchestrator guarded by breaker. A nil breaker behaves as
// if every execution set SkipCircuitBreaker.
func New(breaker *circuitbreaker.CircuitBreaker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		enabled:   true,
		breaker:   breaker,
		scheduler: TimerScheduler{},
		clock:     clock.Real(),
		logger:    slog.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.classifier == nil {
		o.classifier = classifier.New()
	}
	if o.policies == nil {
		o.policies = policy.DefaultTable()
	}
	if o.backoff == nil {
		o.backoff = backoff.New(nil)
	}
	return o
}

func (o *Orchestrator) Breaker() *circuitbreaker.CircuitBreaker {
	return o.breaker
}

func (o *Orchestrator) Enabled() bool {
	return o.enabled
}

// execution is the mutable state of one Execute call.
type execution[T any] struct {
	orch    *Orchestrator
	opts    Options
	out     Outcome[T]
	start   time.Time
	logger  *slog.Logger
	events  emitter
	breaker *circuitbreaker.CircuitBreaker
}

// Execute runs op under o's retry policy and breaker.
func Execute[T any](ctx context.Context, o *Orchestrator, op Operation[T], opts Options) Outcome[T] {
	e := &execution[T]{
		orch:  o,
		opts:  opts,
		start: o.clock.Now(),
	}
	e.out.ExecutionID = o.newID()
	e.logger = o.logger.With(
		slog.String("operation", opts.Name),
		slog.String("execution_id", e.out.ExecutionID))
	e.events = emitter{sink: opts.Events, logger: e.logger}
	if !opts.SkipCircuitBreaker {
		e.breaker = o.breaker
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, opts.Timeout, ErrTimeout)
		defer cancel()
	}

	if !o.enabled {
		return e.runOnce(ctx, op)
	}

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return e.abortBeforeAttempt(ctx)
		}

		if e.breaker != nil && !e.breaker.CanExecute() {
			return e.rejectByCircuit()
		}

		state := e.circuitState()
		attemptStart := o.clock.Now()
		value, err, cancelled := invoke(ctx, op)
		elapsed := o.clock.Now().Sub(attemptStart)

		if cancelled {
			e.append(AttemptRecord{
				Attempt:      attempt,
				Elapsed:      elapsed,
				Err:          err,
				CircuitState: state,
			})
			return e.abort(ctx, "aborted during attempt")
		}

		if err == nil {
			if e.breaker != nil {
				e.breaker.OnSuccess()
			}
			e.append(AttemptRecord{
				Attempt:      attempt,
				Elapsed:      elapsed,
				CircuitState: state,
				Reason:       "succeeded",
			})
			e.out.Success = true
			e.out.Value = value
			e.logger.Debug("Operation succeeded", slog.Int("attempts", attempt))
			e.events.success(value, attempt)
			return e.finish()
		}

		e.events.failedAttempt(err, attempt)

		verdict := o.classifier.Classify(err)
		if opts.Category != nil {
			verdict.Category = *opts.Category
		}
		p := o.policies.Resolve(verdict.Category, opts.Name, opts.Policy)
		reportFailure := e.breaker != nil && p.UseCircuitBreaker

		record := AttemptRecord{
			Attempt:      attempt,
			Category:     verdict.Category,
			Elapsed:      elapsed,
			Err:          err,
			CircuitState: state,
		}

		if reason, stop := terminalReason(verdict, p, attempt); stop {
			if reportFailure {
				e.breaker.OnFailure()
			}
			record.Reason = reason
			e.append(record)
			e.out.Err = err

			e.logger.Warn("Operation failed",
				slog.Int("attempts", attempt),
				slog.String("category", string(verdict.Category)),
				slog.String("reason", reason),
				slog.String("error", err.Error()))
			if verdict.Abort || !p.Enabled {
				e.events.abort(err, reason)
			}
			return e.finish()
		}

		if reportFailure {
			e.breaker.OnFailure()
		}
		delay := o.backoff.Compute(p, attempt)
		record.NextDelay = delay.Delay
		record.Reason = "retrying: " + verdict.Reason
		e.append(record)

		e.logger.Debug("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.String("category", string(verdict.Category)),
			slog.Duration("delay", delay.Delay),
			slog.String("error", err.Error()))

		if o.scheduler.Wait(ctx, delay.Delay) != nil {
			return e.abort(ctx, "aborted during backoff")
		}
		e.events.retry(err, attempt+1)
	}
}

func terminalReason(verdict classifier.Classification, p policy.Policy, attempt int) (string, bool) {
	switch {
	case verdict.Abort:
		return "abort: " + verdict.Reason, true
	case !p.Enabled:
		return fmt.Sprintf("retry disabled for category %s", verdict.Category), true
	case attempt >= p.MaxAttempts:
		return fmt.Sprintf("max attempts reached (%d)", p.MaxAttempts), true
	default:
		return "", false
	}
}

// invoke runs op on its own goroutine and races it against ctx. The
// returned flag reports whether ctx won.
func invoke[T any](ctx context.Context, op Operation[T]) (value T, err error, cancelled bool) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrOperationPanicked, r)}
			}
		}()
		v, err := op(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err, false
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx), true
	}
}

func (e *execution[T]) runOnce(ctx context.Context, op Operation[T]) Outcome[T] {
	attemptStart := e.orch.clock.Now()
	value, err := safeCall(ctx, op)
	e.append(AttemptRecord{
		Attempt: 1,
		Elapsed: e.orch.clock.Now().Sub(attemptStart),
		Err:     err,
		Reason:  "orchestrator disabled",
	})
	if err != nil {
		e.out.Err = err
		return e.finish()
	}
	e.out.Success = true
	e.out.Value = value
	return e.finish()
}

func safeCall[T any](ctx context.Context, op Operation[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return op(ctx)
}

func (e *execution[T]) rejectByCircuit() Outcome[T] {
	e.out.CircuitBreakerTripped = true
	e.out.Err = fmt.Errorf("%w: %s", ErrCircuitOpen, e.breaker.Name())
	if n := len(e.out.Attempts); n > 0 {
		e.out.Attempts[n-1].Reason = "circuit open: " + e.breaker.Name()
	}

	e.logger.Warn("Circuit open, call rejected",
		slog.String("breaker", e.breaker.Name()),
		slog.Int("attempts", len(e.out.Attempts)))
	e.events.abort(e.out.Err, "circuit open")
	return e.finish()
}

func (e *execution[T]) abortBeforeAttempt(ctx context.Context) Outcome[T] {
	return e.abort(ctx, "aborted before attempt")
}

// abort finishes the execution after cancellation or timeout. The reason
// is written onto the last record when there is one.
func (e *execution[T]) abort(ctx context.Context, where string) Outcome[T] {
	cause := context.Cause(ctx)
	reason := fmt.Sprintf("%s: %v", where, cause)

	e.out.Aborted = true
	e.out.Err = fmt.Errorf("%w: %w", ErrAborted, cause)
	if n := len(e.out.Attempts); n > 0 {
		e.out.Attempts[n-1].Reason = reason
	}

	e.logger.Info("Operation aborted",
		slog.Int("attempts", len(e.out.Attempts)),
		slog.String("reason", reason))
	e.events.abort(e.out.Err, reason)
	return e.finish()
}

func (e *execution[T]) circuitState() circuitbreaker.State {
	if e.orch.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return e.orch.breaker.State()
}

func (e *execution[T]) append(record AttemptRecord) {
	e.out.Attempts = append(e.out.Attempts, record)
}

func (e *execution[T]) finish() Outcome[T] {
	e.out.TotalTime = e.orch.clock.Now().Sub(e.start)
	return e.out
}
