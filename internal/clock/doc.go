// Package clock abstracts the time source used by the circuit breaker and
// the retry orchestrator so that recovery timeouts and elapsed-time
// accounting can be driven deterministically in tests.
//
//	c := clock.NewManual(time.Unix(0, 0))
//	cb := circuitbreaker.New("payments", cfg, circuitbreaker.WithClock(c))
//	c.Advance(31 * time.Second)
package clock
