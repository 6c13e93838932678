package retry

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/scheduler_mock.go -package=mocks . Scheduler

// Scheduler paces attempts. Wait blocks for d or until ctx is done, in
// which case it returns a non-nil error.
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler waits on a real timer.
type TimerScheduler struct{}

func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
