package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/clock"
)

var _ = Describe("Registry", func() {
	var (
		registry *circuitbreaker.Registry
		clk      *clock.Manual
		config   circuitbreaker.Config
	)

	BeforeEach(func() {
		clk = clock.NewManual(time.Unix(1_700_000_000, 0))
		config = circuitbreaker.Config{
			FailureThreshold:       2,
			RequestVolumeThreshold: 2,
			RollingWindow:          time.Minute,
			RecoveryTimeout:        50 * time.Millisecond,
			SuccessThreshold:       1,
		}
		registry = circuitbreaker.NewRegistry(config, quietLogger, circuitbreaker.WithClock(clk))
	})

	Describe("Get", func() {
		It("should create a new breaker for an unknown resource", func() {
			cb := registry.Get("search-api")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Name()).To(Equal("search-api"))
		})

		It("should return the same breaker for the same resource", func() {
			Expect(registry.Get("search-api")).To(BeIdenticalTo(registry.Get("search-api")))
		})

		It("should return different breakers for different resources", func() {
			Expect(registry.Get("search-api")).NotTo(BeIdenticalTo(registry.Get("booking-api")))
		})

		It("should use the registry config for new breakers", func() {
			cb := registry.Get("search-api")
			cb.OnFailure()
			cb.OnFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			clk.Advance(60 * time.Millisecond)
			Expect(cb.CanExecute()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
		})

		It("should accept a nil logger", func() {
			r := circuitbreaker.NewRegistry(config, nil)
			Expect(r.Get("x")).NotTo(BeNil())
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent Get calls safely", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)
			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					for j := 0; j < 10; j++ {
						Expect(registry.Get("search-api")).NotTo(BeNil())
					}
				}()
			}
			wg.Wait()

			Expect(registry.Stats()).To(HaveLen(1))
		})

		It("should handle concurrent operations on the same breaker", func() {
			const goroutines = 50

			var wg sync.WaitGroup
			wg.Add(goroutines * 2)

			cb := registry.Get("search-api")
			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb.OnFailure()
				}()
			}
			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb.OnSuccess()
				}()
			}
			wg.Wait()

			Expect(cb.State()).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
			Expect(cb.Snapshot().WindowRequests).To(BeNumerically("<=", goroutines*2))
		})
	})

	Describe("Reset", func() {
		It("should close a single breaker", func() {
			cb := registry.Get("search-api")
			cb.OnFailure()
			cb.OnFailure()
			Expect(registry.Reset("search-api")).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should report unknown names", func() {
			Expect(registry.Reset("nope")).To(BeFalse())
		})

		It("should close every breaker and keep them registered", func() {
			for _, name := range []string{"a", "b", "c"} {
				cb := registry.Get(name)
				cb.OnFailure()
				cb.OnFailure()
			}

			registry.ResetAll()

			stats := registry.Stats()
			Expect(stats).To(HaveLen(3))
			for _, snap := range stats {
				Expect(snap.State).To(Equal(circuitbreaker.StateClosed))
			}
		})
	})

	Describe("Stats", func() {
		It("should return snapshots of all breakers", func() {
			registry.Get("search-api")
			cb := registry.Get("booking-api")
			cb.OnFailure()
			cb.OnFailure()

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["search-api"].State).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["booking-api"].State).To(Equal(circuitbreaker.StateOpen))
			Expect(stats["booking-api"].WindowFailures).To(Equal(2))
		})
	})
})
