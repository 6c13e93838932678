package healthcheck_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/clock"
	"github.com/angeloszaimis/resilience/internal/healthcheck"
)

var _ = Describe("Monitor", func() {
	var (
		registry *circuitbreaker.Registry
		clk      *clock.Manual
		log      *slog.Logger
		mu       sync.Mutex
		seen     []healthcheck.Change
		monitor  *healthcheck.Monitor
	)

	trip := func(name string) {
		cb := registry.Get(name)
		for i := 0; i < 2; i++ {
			cb.OnFailure()
		}
	}

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		clk = clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		registry = circuitbreaker.NewRegistry(circuitbreaker.Config{
			FailureThreshold:       2,
			RequestVolumeThreshold: 2,
			RollingWindow:          time.Minute,
			RecoveryTimeout:        10 * time.Second,
			SuccessThreshold:       1,
		}, log, circuitbreaker.WithClock(clk))

		mu.Lock()
		seen = nil
		mu.Unlock()
		monitor = healthcheck.NewMonitor(registry, log, func(c healthcheck.Change) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, c)
		})
	})

	Describe("Poll", func() {
		It("should report nothing for healthy breakers", func() {
			registry.Get("search")
			Expect(monitor.Poll()).To(BeEmpty())
		})

		It("should report a breaker that opened", func() {
			registry.Get("search")
			monitor.Poll()

			trip("search")
			changes := monitor.Poll()

			Expect(changes).To(HaveLen(1))
			Expect(changes[0].Breaker).To(Equal("search"))
			Expect(changes[0].From).To(Equal(circuitbreaker.StateClosed))
			Expect(changes[0].To).To(Equal(circuitbreaker.StateOpen))
			Expect(changes[0].Since).To(Equal(clk.Now()))
			Expect(seen).To(HaveLen(1))
		})

		It("should report each change once", func() {
			trip("payments")
			Expect(monitor.Poll()).To(HaveLen(1))
			Expect(monitor.Poll()).To(BeEmpty())
		})

		It("should follow the full recovery cycle", func() {
			trip("payments")
			monitor.Poll()

			clk.Advance(11 * time.Second)
			Expect(registry.Get("payments").CanExecute()).To(BeTrue())
			changes := monitor.Poll()
			Expect(changes).To(HaveLen(1))
			Expect(changes[0].To).To(Equal(circuitbreaker.StateHalfOpen))

			registry.Get("payments").OnSuccess()
			changes = monitor.Poll()
			Expect(changes).To(HaveLen(1))
			Expect(changes[0].From).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(changes[0].To).To(Equal(circuitbreaker.StateClosed))
		})

		It("should notice manual resets", func() {
			trip("payments")
			monitor.Poll()

			registry.Reset("payments")
			changes := monitor.Poll()
			Expect(changes).To(HaveLen(1))
			Expect(changes[0].To).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Run", func() {
		It("should poll on every tick", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			trip("search")
			go monitor.Run(ctx, 10*time.Millisecond)

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return len(seen)
			}).Should(Equal(1))
		})

		It("should stop when context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			go func() {
				monitor.Run(ctx, 10*time.Millisecond)
				close(done)
			}()

			cancel()
			Eventually(done).Should(BeClosed())
		})
	})
})
