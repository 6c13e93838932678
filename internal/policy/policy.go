package policy

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/resilience/internal/classifier"
)

type Policy struct {
	Enabled           bool
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	Multiplier        float64
	JitterFraction    float64
	UseCircuitBreaker bool
}

func (p Policy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&p.InitialDelay, validation.Min(time.Duration(0))),
		validation.Field(&p.MaxDelay, validation.By(func(interface{}) error {
			if p.MaxDelay < p.InitialDelay {
				return validation.NewError("validation_max_delay", "must be no less than the initial delay")
			}
			return nil
		})),
		validation.Field(&p.Multiplier, validation.Required, validation.Min(1.0)),
		validation.Field(&p.JitterFraction, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Override carries the fields of a Policy that should replace the base
// value. Nil fields inherit.
type Override struct {
	Enabled           *bool
	MaxAttempts       *int
	InitialDelay      *time.Duration
	MaxDelay          *time.Duration
	Multiplier        *float64
	JitterFraction    *float64
	UseCircuitBreaker *bool
}

// Apply returns p with every non-nil field of o applied.
func (p Policy) Apply(o *Override) Policy {
	if o == nil {
		return p
	}
	if o.Enabled != nil {
		p.Enabled = *o.Enabled
	}
	if o.MaxAttempts != nil {
		p.MaxAttempts = *o.MaxAttempts
	}
	if o.InitialDelay != nil {
		p.InitialDelay = *o.InitialDelay
	}
	if o.MaxDelay != nil {
		p.MaxDelay = *o.MaxDelay
	}
	if o.Multiplier != nil {
		p.Multiplier = *o.Multiplier
	}
	if o.JitterFraction != nil {
		p.JitterFraction = *o.JitterFraction
	}
	if o.UseCircuitBreaker != nil {
		p.UseCircuitBreaker = *o.UseCircuitBreaker
	}
	return p
}

// Ptr returns a pointer to v, for building Overrides inline.
func Ptr[T any](v T) *T {
	return &v
}

// OperationOverride applies to every operation whose name contains one of
// Keywords, compared case-insensitively.
type OperationOverride struct {
	Name     string
	Keywords []string
	Override Override
}

// DefaultPolicies returns the built-in per-category policies.
func DefaultPolicies() map[classifier.Category]Policy {
	return map[classifier.Category]Policy{
		classifier.CategoryNetwork: {
			Enabled: true, MaxAttempts: 5,
			InitialDelay: time.Second, MaxDelay: 30 * time.Second,
			Multiplier: 2, JitterFraction: 0.1, UseCircuitBreaker: true,
		},
		classifier.CategoryTimeout: {
			Enabled: true, MaxAttempts: 3,
			InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second,
			Multiplier: 2, JitterFraction: 0.1, UseCircuitBreaker: true,
		},
		classifier.CategoryRateLimit: {
			Enabled: true, MaxAttempts: 5,
			InitialDelay: 5 * time.Second, MaxDelay: 60 * time.Second,
			Multiplier: 2, JitterFraction: 0.2, UseCircuitBreaker: false,
		},
		classifier.CategoryServer: {
			Enabled: true, MaxAttempts: 4,
			InitialDelay: time.Second, MaxDelay: 30 * time.Second,
			Multiplier: 2, JitterFraction: 0.1, UseCircuitBreaker: true,
		},
		classifier.CategoryClient: {
			Enabled: false, MaxAttempts: 1,
			InitialDelay: 0, MaxDelay: 0,
			Multiplier: 1, JitterFraction: 0, UseCircuitBreaker: false,
		},
		classifier.CategoryAuth: {
			Enabled: true, MaxAttempts: 2,
			InitialDelay: time.Second, MaxDelay: 5 * time.Second,
			Multiplier: 1.5, JitterFraction: 0.1, UseCircuitBreaker: false,
		},
		classifier.CategoryNavigation: {
			Enabled: true, MaxAttempts: 3,
			InitialDelay: time.Second, MaxDelay: 10 * time.Second,
			Multiplier: 2, JitterFraction: 0.1, UseCircuitBreaker: true,
		},
		classifier.CategoryBusiness: {
			Enabled: true, MaxAttempts: 2,
			InitialDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second,
			Multiplier: 1.5, JitterFraction: 0, UseCircuitBreaker: false,
		},
		classifier.CategoryUnknown: {
			Enabled: true, MaxAttempts: 3,
			InitialDelay: time.Second, MaxDelay: 10 * time.Second,
			Multiplier: 2, JitterFraction: 0.1, UseCircuitBreaker: true,
		},
	}
}

// DefaultOperationOverrides returns the built-in name overrides in priority
// order.
func DefaultOperationOverrides() []OperationOverride {
	return []OperationOverride{
		{
			Name:     "navigation",
			Keywords: []string{"navigation", "navigate"},
			Override: Override{
				MaxAttempts:  Ptr(3),
				InitialDelay: Ptr(2 * time.Second),
				MaxDelay:     Ptr(15 * time.Second),
			},
		},
		{
			Name:     "search",
			Keywords: []string{"slot", "search"},
			Override: Override{
				MaxAttempts:  Ptr(5),
				InitialDelay: Ptr(500 * time.Millisecond),
				MaxDelay:     Ptr(5 * time.Second),
			},
		},
		{
			Name:     "booking",
			Keywords: []string{"booking", "book"},
			Override: Override{
				MaxAttempts:  Ptr(2),
				InitialDelay: Ptr(time.Second),
				MaxDelay:     Ptr(3 * time.Second),
			},
		},
		{
			Name:     "payment",
			Keywords: []string{"checkout", "payment"},
			Override: Override{
				MaxAttempts:       Ptr(1),
				UseCircuitBreaker: Ptr(false),
			},
		},
	}
}
