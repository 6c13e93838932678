package circuitbreaker

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config controls when a breaker opens and how it recovers.
//
// A CLOSED breaker opens once both FailureThreshold consecutive failures
// and RequestVolumeThreshold requests inside RollingWindow have been seen.
// A zero RollingWindow keeps every outcome until the next reset.
type Config struct {
	FailureThreshold       int
	RequestVolumeThreshold int
	RollingWindow          time.Duration
	RecoveryTimeout        time.Duration
	SuccessThreshold       int
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.RequestVolumeThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.RollingWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.RecoveryTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
	)
}

// DefaultConfig suits most dependencies.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:       5,
		RequestVolumeThreshold: 10,
		RollingWindow:          time.Minute,
		RecoveryTimeout:        30 * time.Second,
		SuccessThreshold:       2,
	}
}

// AggressiveConfig trips quickly and probes soon after.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold:       3,
		RequestVolumeThreshold: 3,
		RollingWindow:          30 * time.Second,
		RecoveryTimeout:        10 * time.Second,
		SuccessThreshold:       1,
	}
}

// ConservativeConfig tolerates long failure streaks.
func ConservativeConfig() Config {
	return Config{
		FailureThreshold:       15,
		RequestVolumeThreshold: 25,
		RollingWindow:          5 * time.Minute,
		RecoveryTimeout:        time.Minute,
		SuccessThreshold:       3,
	}
}
