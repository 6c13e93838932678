package backoff_test

import (
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/backoff"
	"github.com/angeloszaimis/resilience/internal/policy"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var _ = Describe("Calculator", func() {
	var p policy.Policy

	BeforeEach(func() {
		p = policy.Policy{
			Enabled:      true,
			MaxAttempts:  10,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		}
	})

	Describe("without jitter", func() {
		var calc *backoff.Calculator

		BeforeEach(func() {
			calc = backoff.New(fixedRand(0.9))
		})

		DescribeTable("exponential growth",
			func(attempt int, expected time.Duration) {
				d := calc.Compute(p, attempt)
				Expect(d.Delay).To(Equal(expected))
				Expect(d.Base).To(Equal(expected))
				Expect(d.Jitter).To(BeZero())
			},
			Entry("attempt 1", 1, 100*time.Millisecond),
			Entry("attempt 2", 2, 200*time.Millisecond),
			Entry("attempt 3", 3, 400*time.Millisecond),
			Entry("attempt 5", 5, 1600*time.Millisecond),
			Entry("attempt 6 is clamped", 6, 2*time.Second),
			Entry("attempt 100 is clamped", 100, 2*time.Second),
		)

		It("should treat attempts below one as the first attempt", func() {
			Expect(calc.Compute(p, 0).Delay).To(Equal(100 * time.Millisecond))
			Expect(calc.Compute(p, -3).Delay).To(Equal(100 * time.Millisecond))
		})

		It("should survive overflowing exponents", func() {
			p.Multiplier = 1e6
			Expect(calc.Compute(p, 1000).Delay).To(Equal(p.MaxDelay))
		})

		It("should return zero for a zero initial delay", func() {
			p.InitialDelay = 0
			Expect(calc.Compute(p, 4).Delay).To(BeZero())
		})
	})

	Describe("with jitter", func() {
		BeforeEach(func() {
			p.JitterFraction = 0.5
		})

		It("should subtract the full spread at the low end", func() {
			d := backoff.New(fixedRand(0)).Compute(p, 2)
			Expect(d.Base).To(Equal(200 * time.Millisecond))
			Expect(d.Jitter).To(Equal(-100 * time.Millisecond))
			Expect(d.Delay).To(Equal(100 * time.Millisecond))
		})

		It("should add the spread at the high end", func() {
			d := backoff.New(fixedRand(0.75)).Compute(p, 2)
			Expect(d.Jitter).To(Equal(50 * time.Millisecond))
			Expect(d.Delay).To(Equal(250 * time.Millisecond))
		})

		It("should never exceed the max delay", func() {
			d := backoff.New(fixedRand(0.999)).Compute(p, 10)
			Expect(d.Delay).To(Equal(p.MaxDelay))
		})

		It("should never go negative", func() {
			p.JitterFraction = 1
			d := backoff.New(fixedRand(0)).Compute(p, 1)
			Expect(d.Delay).To(BeNumerically(">=", 0))
		})

		It("should round to whole milliseconds", func() {
			p.InitialDelay = 333 * time.Millisecond
			d := backoff.New(fixedRand(0.6137)).Compute(p, 1)
			Expect(d.Delay % time.Millisecond).To(BeZero())
		})
	})

	Describe("properties", func() {
		It("should be non-decreasing before the clamp and bounded by the max", func() {
			calc := backoff.New(fixedRand(0.5))
			previous := time.Duration(0)
			for attempt := 1; attempt <= 20; attempt++ {
				d := calc.Compute(p, attempt)
				Expect(d.Base).To(BeNumerically(">=", previous))
				Expect(d.Delay).To(BeNumerically(">=", 0))
				Expect(d.Delay).To(BeNumerically("<=", p.MaxDelay))
				previous = d.Base
			}
		})

		It("should stay within bounds for random jitter", func() {
			p.JitterFraction = 0.3
			calc := backoff.New(rand.New(rand.NewPCG(1, 2)))
			for attempt := 1; attempt <= 200; attempt++ {
				d := calc.Compute(p, attempt%12+1)
				Expect(d.Delay).To(BeNumerically(">=", 0))
				Expect(d.Delay).To(BeNumerically("<=", p.MaxDelay))
			}
		})

		It("should default to a shared random source", func() {
			p.JitterFraction = 0.2
			d := backoff.New(nil).Compute(p, 3)
			Expect(d.Delay).To(BeNumerically(">=", 320*time.Millisecond))
			Expect(d.Delay).To(BeNumerically("<=", 480*time.Millisecond))
		})
	})
})
