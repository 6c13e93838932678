package backoff

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/angeloszaimis/resilience/internal/policy"
)

// RandSource yields uniformly distributed values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// Delay is the result of one computation. Delay is what the caller waits;
// Base and Jitter explain how it was reached.
type Delay struct {
	Delay  time.Duration
	Base   time.Duration
	Jitter time.Duration
}

type Calculator struct {
	rand RandSource
}

// New returns a Calculator drawing jitter from src, or from the shared
// math/rand/v2 generator when src is nil.
func New(src RandSource) *Calculator {
	if src == nil {
		src = globalSource{}
	}
	return &Calculator{rand: src}
}

// Compute returns the delay for the given 1-based attempt number.
//
//	base  = min(InitialDelay * Multiplier^(attempt-1), MaxDelay)
//	delay = round(max(0, base + uniform(-f*base, +f*base)))
//
// The result is rounded to the millisecond and never exceeds MaxDelay.
func (c *Calculator) Compute(p policy.Policy, attempt int) Delay {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := max(p.Multiplier, 1)

	raw := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if math.IsInf(raw, 0) || math.IsNaN(raw) || raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	base := time.Duration(max(raw, 0))

	var jitter time.Duration
	if fraction := min(max(p.JitterFraction, 0), 1); fraction > 0 && base > 0 {
		spread := fraction * float64(base)
		jitter = time.Duration((c.rand.Float64()*2 - 1) * spread)
	}

	delay := max(base+jitter, 0).Round(time.Millisecond)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return Delay{
		Delay:  delay,
		Base:   base,
		Jitter: jitter,
	}
}
