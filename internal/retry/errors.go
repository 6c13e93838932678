package retry

import "errors"

var (
	// ErrCircuitOpen is returned when the breaker refused admission.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrAborted marks outcomes cut short by cancellation or timeout.
	ErrAborted = errors.New("retry aborted")

	// ErrTimeout is the cancellation cause when Options.Timeout elapses.
	ErrTimeout = errors.New("execution timeout exceeded")

	// ErrOperationPanicked wraps a panic raised by the operation.
	ErrOperationPanicked = errors.New("operation panicked")
)
