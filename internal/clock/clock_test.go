package clock_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/internal/clock"
)

var _ = Describe("Clock", func() {
	Describe("Real", func() {
		It("should follow wall time", func() {
			before := time.Now()
			now := clock.Real().Now()
			Expect(now).To(BeTemporally(">=", before))
		})
	})

	Describe("Manual", func() {
		var (
			start time.Time
			c     *clock.Manual
		)

		BeforeEach(func() {
			start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			c = clock.NewManual(start)
		})

		It("should not move on its own", func() {
			Expect(c.Now()).To(Equal(start))
			Expect(c.Now()).To(Equal(start))
		})

		It("should advance by the given duration", func() {
			Expect(c.Advance(1500 * time.Millisecond)).To(Equal(start.Add(1500 * time.Millisecond)))
			Expect(c.Now()).To(Equal(start.Add(1500 * time.Millisecond)))
		})

		It("should jump to a set time", func() {
			later := start.Add(time.Hour)
			c.Set(later)
			Expect(c.Now()).To(Equal(later))
		})
	})
})
