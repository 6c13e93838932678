package classifier

import (
	"fmt"
	"regexp"
)

type Category string

const (
	CategoryNetwork    Category = "NETWORK"
	CategoryTimeout    Category = "TIMEOUT"
	CategoryRateLimit  Category = "RATE_LIMIT"
	CategoryServer     Category = "SERVER"
	CategoryClient     Category = "CLIENT"
	CategoryAuth       Category = "AUTH"
	CategoryNavigation Category = "NAVIGATION"
	CategoryBusiness   Category = "BUSINESS"
	CategoryUnknown    Category = "UNKNOWN"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryNetwork,
	CategoryTimeout,
	CategoryRateLimit,
	CategoryServer,
	CategoryClient,
	CategoryAuth,
	CategoryNavigation,
	CategoryBusiness,
	CategoryUnknown,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Classification is the verdict for a single failure.
// Abort always implies Retryable == false. A Confidence below 0.5 marks a
// fallback guess rather than a pattern hit.
type Classification struct {
	Category   Category
	Retryable  bool
	Abort      bool
	Confidence float64
	Reason     string
}

// Pattern is one row of the classification table. A row matches when
// MessagePattern matches the error text, or when the error's status code is
// listed in StatusCodes or falls inside [StatusMin, StatusMax].
type Pattern struct {
	MessagePattern *regexp.Regexp
	StatusCodes    []int
	StatusMin      int
	StatusMax      int
	Category       Category
	Retryable      bool
	Abort          bool
	Confidence     float64
	Description    string
}

// StatusCoder is implemented by failures that carry a numeric status code,
// typically an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StackTracer is implemented by failures that carry a rendered stack or
// source hint.
type StackTracer interface {
	StackTrace() string
}

// StatusError is a failure with a status code.
type StatusError struct {
	Code    int
	Message string
	Err     error
}

func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

func (e *StatusError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("status %d: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("status %d: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("status %d: %v", e.Code, e.Err)
	default:
		return fmt.Sprintf("status %d", e.Code)
	}
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
