// Package circuitbreaker implements the circuit breaker that guards a
// protected resource against repeated calls while it is failing.
//
// A breaker has three states:
//
//   - CLOSED: normal operation, calls pass through
//   - OPEN: the resource is failing, calls are rejected without running
//   - HALF-OPEN: the recovery timeout has passed, probe calls are admitted
//
// Opening is a hybrid decision. The breaker needs a streak of consecutive
// failures and a minimum number of requests inside the rolling window, so
// a single burst on a quiet resource does not trip it. Any failure while
// HALF-OPEN reopens immediately; SuccessThreshold successful probes close it.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(), logger)
//	cb := registry.Get("booking-api")
//	if cb.CanExecute() {
//	    if err := call(); err != nil {
//	        cb.OnFailure()
//	    } else {
//	        cb.OnSuccess()
//	    }
//	}
//
// Breaker state is local to the process.
package circuitbreaker
