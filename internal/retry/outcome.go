package retry

import (
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/classifier"
)

// AttemptRecord describes one attempt. Records are appended in attempt
// order and never modified afterwards, except that a cancellation or a
// circuit rejection after the backoff wait rewrites the last Reason.
type AttemptRecord struct {
	Attempt  int
	Category classifier.Category
	// NextDelay is the backoff scheduled after this attempt. It is zero when
	// the attempt ended the execution by itself.
	NextDelay    time.Duration
	Elapsed      time.Duration
	Err          error
	CircuitState circuitbreaker.State
	Reason       string
}

type Outcome[T any] struct {
	ExecutionID           string
	Success               bool
	Value                 T
	Err                   error
	Attempts              []AttemptRecord
	TotalTime             time.Duration
	CircuitBreakerTripped bool
	Aborted               bool
}

func (o Outcome[T]) TotalAttempts() int {
	return len(o.Attempts)
}

// Delays returns every backoff wait the execution scheduled, including one
// that was followed by a rejection or cancellation instead of an attempt.
func (o Outcome[T]) Delays() []time.Duration {
	n := len(o.Attempts)
	if n == 0 {
		return nil
	}
	delays := make([]time.Duration, 0, n)
	for _, record := range o.Attempts[:n-1] {
		delays = append(delays, record.NextDelay)
	}
	if last := o.Attempts[n-1]; last.NextDelay > 0 {
		delays = append(delays, last.NextDelay)
	}
	if len(delays) == 0 {
		return nil
	}
	return delays
}

func (o Outcome[T]) LastRecord() (AttemptRecord, bool) {
	if len(o.Attempts) == 0 {
		return AttemptRecord{}, false
	}
	return o.Attempts[len(o.Attempts)-1], true
}
