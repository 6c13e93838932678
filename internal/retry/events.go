package retry

import (
	"fmt"
	"log/slog"
)

//go:generate mockgen -destination=mocks/event_sink_mock.go -package=mocks . EventSink

// EventSink receives lifecycle callbacks for one execution. Callbacks run
// synchronously on the executing goroutine. A panicking callback is
// recovered and logged; it never changes the outcome.
type EventSink interface {
	// OnRetry fires as soon as the backoff wait ends, before the breaker is
	// asked to admit attempt.
	OnRetry(err error, attempt int)
	// OnFailedAttempt fires for every failed attempt before the retry
	// decision is made.
	OnFailedAttempt(err error, attempt int)
	// OnSuccess fires once with the value and the number of attempts used.
	OnSuccess(value any, attempts int)
	// OnAbort fires when the execution stops early: an abort verdict,
	// retries disabled for the category, an open circuit, cancellation or
	// timeout.
	OnAbort(err error, reason string)
}

// SinkFuncs adapts plain functions to EventSink. Nil fields are skipped.
type SinkFuncs struct {
	Retry         func(err error, attempt int)
	FailedAttempt func(err error, attempt int)
	Success       func(value any, attempts int)
	Abort         func(err error, reason string)
}

func (s SinkFuncs) OnRetry(err error, attempt int) {
	if s.Retry != nil {
		s.Retry(err, attempt)
	}
}

func (s SinkFuncs) OnFailedAttempt(err error, attempt int) {
	if s.FailedAttempt != nil {
		s.FailedAttempt(err, attempt)
	}
}

func (s SinkFuncs) OnSuccess(value any, attempts int) {
	if s.Success != nil {
		s.Success(value, attempts)
	}
}

func (s SinkFuncs) OnAbort(err error, reason string) {
	if s.Abort != nil {
		s.Abort(err, reason)
	}
}

// MultiSink fans every callback out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) OnRetry(err error, attempt int) {
	for _, s := range m {
		s.OnRetry(err, attempt)
	}
}

func (m MultiSink) OnFailedAttempt(err error, attempt int) {
	for _, s := range m {
		s.OnFailedAttempt(err, attempt)
	}
}

func (m MultiSink) OnSuccess(value any, attempts int) {
	for _, s := range m {
		s.OnSuccess(value, attempts)
	}
}

func (m MultiSink) OnAbort(err error, reason string) {
	for _, s := range m {
		s.OnAbort(err, reason)
	}
}

// emitter shields the retry flow from sink failures.
type emitter struct {
	sink   EventSink
	logger *slog.Logger
}

func (e emitter) call(event string, fn func(EventSink)) {
	if e.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Event sink panicked",
				slog.String("event", event),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(e.sink)
}

func (e emitter) retry(err error, attempt int) {
	e.call("retry", func(s EventSink) { s.OnRetry(err, attempt) })
}

func (e emitter) failedAttempt(err error, attempt int) {
	e.call("failed_attempt", func(s EventSink) { s.OnFailedAttempt(err, attempt) })
}

func (e emitter) success(value any, attempts int) {
	e.call("success", func(s EventSink) { s.OnSuccess(value, attempts) })
}

func (e emitter) abort(err error, reason string) {
	e.call("abort", func(s EventSink) { s.OnAbort(err, reason) })
}
