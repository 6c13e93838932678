// Package retry executes one logical operation across bounded attempts.
//
// An Orchestrator composes the error classifier, the policy table, the
// backoff calculator and a circuit breaker. For every attempt it asks the
// breaker for admission, runs the operation, classifies a failure, resolves
// the effective policy, reports to the breaker and either schedules the
// next attempt or stops.
//
//	orch := retry.New(registry.Get("booking-api"), retry.WithLogger(logger))
//	out := retry.Execute(ctx, orch, func(ctx context.Context) (Slot, error) {
//	    return client.SearchSlots(ctx, query)
//	}, retry.Options{Name: "searchSlots", Timeout: 20 * time.Second})
//	if !out.Success {
//	    return out.Err
//	}
//
// Execute never returns a Go error or panics on behalf of the operation.
// The Outcome carries the last underlying error, ErrCircuitOpen when the
// breaker refused admission, or an error wrapping ErrAborted when the
// context was cancelled or the execution timeout fired.
//
// Cancellation is cooperative. The context is checked before each attempt,
// raced against the running operation and honoured during backoff waits.
// An abandoned operation keeps running until it observes its own context.
package retry
