package retry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/clock"
	"github.com/angeloszaimis/resilience/internal/policy"
	"github.com/angeloszaimis/resilience/internal/retry"
)

var _ = Describe("ExecuteAll", func() {
	var (
		ctx  context.Context
		orch *retry.Orchestrator
		once retry.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		clk := clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		orch = retry.New(nil,
			retry.WithClock(clk),
			retry.WithScheduler(&instantScheduler{clk: clk}),
			retry.WithLogger(quietLogger))
		once = retry.Options{Policy: &policy.Override{MaxAttempts: policy.Ptr(1)}}
	})

	value := func(v int) retry.Operation[int] {
		return func(context.Context) (int, error) { return v, nil }
	}

	failing := func(context.Context) (int, error) {
		return 0, errors.New("boom")
	}

	It("should keep input order", func() {
		tasks := make([]retry.Task[int], 7)
		for i := range tasks {
			tasks[i] = retry.Task[int]{Operation: value(i), Options: once}
		}

		outcomes, err := retry.ExecuteAll(ctx, orch, tasks, retry.BatchOptions{MaxConcurrent: 3})

		Expect(err).NotTo(HaveOccurred())
		Expect(outcomes).To(HaveLen(7))
		for i, out := range outcomes {
			Expect(out.Success).To(BeTrue())
			Expect(out.Value).To(Equal(i))
		}
	})

	It("should never exceed the concurrency bound", func() {
		var running, peak int32
		op := func(context.Context) (int, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return 1, nil
		}
		tasks := make([]retry.Task[int], 9)
		for i := range tasks {
			tasks[i] = retry.Task[int]{Operation: op, Options: once}
		}

		_, err := retry.ExecuteAll(ctx, orch, tasks, retry.BatchOptions{MaxConcurrent: 2})

		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 2))
	})

	It("should report failures per outcome without failing the batch", func() {
		tasks := []retry.Task[int]{
			{Operation: value(1), Options: once},
			{Operation: failing, Options: once},
			{Operation: value(3), Options: once},
		}

		outcomes, err := retry.ExecuteAll(ctx, orch, tasks, retry.BatchOptions{})

		Expect(err).NotTo(HaveOccurred())
		Expect(outcomes[0].Success).To(BeTrue())
		Expect(outcomes[1].Success).To(BeFalse())
		Expect(outcomes[2].Success).To(BeTrue())
	})

	It("should stop at the first failure in fail-fast mode", func() {
		var thirdRan atomic.Bool
		tasks := []retry.Task[int]{
			{Operation: value(1), Options: once},
			{Operation: failing, Options: retry.Options{Name: "reserve", Policy: once.Policy}},
			{Operation: func(context.Context) (int, error) {
				thirdRan.Store(true)
				return 3, nil
			}, Options: once},
		}

		outcomes, err := retry.ExecuteAll(ctx, orch, tasks, retry.BatchOptions{FailFast: true})

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, retry.ErrBatchFailed)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("reserve"))
		Expect(outcomes).To(HaveLen(2))
		Expect(thirdRan.Load()).To(BeFalse())
	})

	It("should handle an empty batch", func() {
		outcomes, err := retry.ExecuteAll[int](ctx, orch, nil, retry.BatchOptions{MaxConcurrent: 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcomes).To(BeEmpty())
	})
})
