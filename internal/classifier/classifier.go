package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Classifier is safe for concurrent use. Classify never mutates it.
type Classifier struct {
	mutex    sync.RWMutex
	patterns []Pattern
}

func New() *Classifier {
	return &Classifier{patterns: builtinPatterns()}
}

// AddPattern registers a custom pattern ahead of every existing one.
// Abort patterns are forced to be non-retryable.
func (c *Classifier) AddPattern(p Pattern) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid classification pattern: %w", err)
	}
	if p.Abort {
		p.Retryable = false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	patterns := make([]Pattern, 0, len(c.patterns)+1)
	patterns = append(patterns, p)
	c.patterns = append(patterns, c.patterns...)
	return nil
}

// Patterns returns a copy of the table in priority order.
func (c *Classifier) Patterns() []Pattern {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return slices.Clone(c.patterns)
}

// Classify returns the verdict for err. Identical input always yields the
// identical verdict for a given table.
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return Classification{
			Category: CategoryUnknown,
			Reason:   "no failure",
		}
	}

	message := err.Error()
	status, hasStatus := statusCode(err)

	c.mutex.RLock()
	patterns := c.patterns
	c.mutex.RUnlock()

	// Rate limits and server failures stay retryable whatever the message says.
	if hasStatus && transientStatus(status) {
		for _, p := range patterns {
			if !p.Abort && p.matchesStatus(status) {
				return p.verdict()
			}
		}
	}

	for _, p := range patterns {
		if p.matches(message, status, hasStatus) {
			return p.verdict()
		}
	}

	if verdict, ok := classifyContext(err); ok {
		return verdict
	}

	return Classification{
		Category:   CategoryUnknown,
		Retryable:  true,
		Confidence: unknownConfidence,
		Reason:     "unrecognised failure, assumed transient",
	}
}

func transientStatus(status int) bool {
	return status == 429 || (status >= 500 && status <= 599)
}

func (p Pattern) verdict() Classification {
	return Classification{
		Category:   p.Category,
		Retryable:  p.Retryable && !p.Abort,
		Abort:      p.Abort,
		Confidence: p.Confidence,
		Reason:     p.Description,
	}
}

func (p Pattern) matches(message string, status int, hasStatus bool) bool {
	if p.MessagePattern != nil && p.MessagePattern.MatchString(message) {
		return true
	}
	return hasStatus && p.matchesStatus(status)
}

func (p Pattern) matchesStatus(status int) bool {
	if slices.Contains(p.StatusCodes, status) {
		return true
	}
	return p.StatusMax > 0 && status >= p.StatusMin && status <= p.StatusMax
}

func (p Pattern) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Category,
			validation.Required,
			validation.By(func(value interface{}) error {
				category, _ := value.(Category)
				if !category.Valid() {
					return validation.NewError("validation_invalid_category", "unknown failure category")
				}
				return nil
			}),
		),
		validation.Field(&p.Confidence, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&p.MessagePattern,
			validation.By(func(interface{}) error {
				if p.MessagePattern == nil && len(p.StatusCodes) == 0 && p.StatusMax == 0 {
					return validation.NewError("validation_no_matcher", "pattern needs a message pattern or a status code")
				}
				return nil
			}),
		),
		validation.Field(&p.StatusMax,
			validation.When(p.StatusMax > 0, validation.Min(p.StatusMin)),
		),
	)
}

func statusCode(err error) (int, bool) {
	var coder StatusCoder
	if errors.As(err, &coder) {
		return coder.StatusCode(), true
	}
	return 0, false
}

// classifyContext is the fallback pass: it inspects the dynamic types in the
// error chain and any attached stack trace.
func classifyContext(err error) (Classification, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return contextVerdict(CategoryTimeout, "deadline exceeded"), true
	}

	var tracer StackTracer
	if errors.As(err, &tracer) && browserDriverFrames.MatchString(tracer.StackTrace()) {
		return contextVerdict(CategoryNavigation, "browser automation frame in stack"), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return contextVerdict(CategoryTimeout, "network timeout"), true
		}
		return contextVerdict(CategoryNetwork, "network error type"), true
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		typeName := fmt.Sprintf("%T", e)
		switch {
		case strings.Contains(typeName, "Timeout"):
			return contextVerdict(CategoryTimeout, "timeout error type "+typeName), true
		case strings.HasPrefix(typeName, "*net.") || strings.HasPrefix(typeName, "*url.") || strings.Contains(typeName, "syscall.Errno"):
			return contextVerdict(CategoryNetwork, "network error type "+typeName), true
		case strings.Contains(typeName, "Navigation") || strings.Contains(typeName, "Browser"):
			return contextVerdict(CategoryNavigation, "navigation error type "+typeName), true
		}
	}

	return Classification{}, false
}

func contextVerdict(category Category, reason string) Classification {
	return Classification{
		Category:   category,
		Retryable:  true,
		Confidence: contextConfidence,
		Reason:     reason,
	}
}
