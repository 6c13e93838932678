package retry_test

import (
	"context"
	"sync"
	"time"

	"github.com/angeloszaimis/resilience/internal/clock"
	"github.com/angeloszaimis/resilience/pkg/logger"
)

var quietLogger = logger.Discard()

// instantScheduler records requested waits and advances the manual clock
// instead of sleeping.
type instantScheduler struct {
	mu     sync.Mutex
	clk    *clock.Manual
	waits  []time.Duration
	before func(ctx context.Context)
}

func (s *instantScheduler) Wait(ctx context.Context, d time.Duration) error {
	if s.before != nil {
		s.before(ctx)
	}
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.clk.Advance(d)
	return nil
}

func (s *instantScheduler) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// flaky fails the first n calls with err and succeeds afterwards.
type flaky struct {
	mu    sync.Mutex
	calls int
	fails int
	err   error
}

func (f *flaky) Call(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return "", f.err
	}
	return "ok", nil
}

func (f *flaky) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
