package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/resilience/internal/clock"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Rejecting calls
	StateHalfOpen              // Admitting probes
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time copy of a breaker's counters.
type Snapshot struct {
	Name                 string    `json:"name"`
	State                State     `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	WindowRequests       int       `json:"window_requests"`
	WindowFailures       int       `json:"window_failures"`
	LastFailureAt        time.Time `json:"last_failure_at"`
	LastStateChangeAt    time.Time `json:"last_state_change_at"`
}

// StateChangeListener is told about every transition. It runs outside the
// breaker lock; a panicking listener is logged and ignored.
type StateChangeListener interface {
	OnStateChange(name string, from, to State)
}

// StateChangeFunc adapts a function to StateChangeListener.
type StateChangeFunc func(name string, from, to State)

func (f StateChangeFunc) OnStateChange(name string, from, to State) {
	f(name, from, to)
}

type outcome struct {
	at     time.Time
	failed bool
}

type transition struct {
	from, to State
}

// CircuitBreaker guards one protected resource. All methods are safe for
// concurrent use; counters only change inside CanExecute, OnSuccess,
// OnFailure and Reset.
//
//	| State     | Trigger                                   | Next      |
//	|-----------|-------------------------------------------|-----------|
//	| CLOSED    | OnFailure, volume and streak thresholds   | OPEN      |
//	| OPEN      | CanExecute after RecoveryTimeout          | HALF-OPEN |
//	| OPEN      | CanExecute before RecoveryTimeout         | OPEN      |
//	| HALF-OPEN | OnFailure                                 | OPEN      |
//	| HALF-OPEN | OnSuccess, SuccessThreshold probes passed | CLOSED    |
//	| CLOSED    | OnSuccess                                 | CLOSED    |
type CircuitBreaker struct {
	mutex  sync.Mutex
	name   string
	config Config
	clock  clock.Clock
	logger *slog.Logger

	listeners []StateChangeListener

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	window               []outcome
	lastFailureAt        time.Time
	lastStateChangeAt    time.Time
}

type Option func(*CircuitBreaker)

func WithClock(c clock.Clock) Option {
	return func(cb *CircuitBreaker) {
		cb.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

func WithStateChangeListener(listener StateChangeListener) Option {
	return func(cb *CircuitBreaker) {
		cb.listeners = append(cb.listeners, listener)
	}
}

// New creates a CLOSED breaker. Callers are expected to pass a validated
// Config; thresholds below one are raised to one.
func New(name string, config Config, opts ...Option) *CircuitBreaker {
	config.FailureThreshold = max(config.FailureThreshold, 1)
	config.RequestVolumeThreshold = max(config.RequestVolumeThreshold, 1)
	config.SuccessThreshold = max(config.SuccessThreshold, 1)

	cb := &CircuitBreaker{
		name:   name,
		config: config,
		clock:  clock.Real(),
		logger: slog.Default(),
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.lastStateChangeAt = cb.clock.Now()
	return cb
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) Config() Config {
	return cb.config
}

// CanExecute reports whether a call may proceed. Polling an OPEN breaker
// whose recovery timeout has elapsed moves it to HALF-OPEN and admits the
// call.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mutex.Lock()

	var changed *transition
	allowed := true

	if cb.state == StateOpen {
		now := cb.clock.Now()
		if now.Sub(cb.lastStateChangeAt) >= cb.config.RecoveryTimeout {
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
			changed = cb.setState(StateHalfOpen, now)
		} else {
			allowed = false
		}
	}

	cb.mutex.Unlock()
	cb.notify(changed)
	return allowed
}

func (cb *CircuitBreaker) OnSuccess() {
	cb.mutex.Lock()

	now := cb.clock.Now()
	cb.record(now, false)

	var changed *transition
	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0
	case StateHalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.clearCounters()
			changed = cb.setState(StateClosed, now)
		}
	case StateOpen:
		// A late result from a call admitted before the breaker opened.
	}

	cb.mutex.Unlock()
	cb.notify(changed)
}

func (cb *CircuitBreaker) OnFailure() {
	cb.mutex.Lock()

	now := cb.clock.Now()
	cb.record(now, true)
	cb.consecutiveFailures++
	cb.lastFailureAt = now

	var changed *transition
	switch cb.state {
	case StateClosed:
		if len(cb.window) >= cb.config.RequestVolumeThreshold &&
			cb.consecutiveFailures >= cb.config.FailureThreshold {
			changed = cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		cb.consecutiveSuccesses = 0
		changed = cb.setState(StateOpen, now)
	case StateOpen:
	}

	cb.mutex.Unlock()
	cb.notify(changed)
}

// Reset forces the breaker CLOSED and clears every counter.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()

	cb.clearCounters()
	cb.lastFailureAt = time.Time{}
	changed := cb.setState(StateClosed, cb.clock.Now())

	cb.mutex.Unlock()
	cb.notify(changed)
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Snapshot returns a copy of the current counters. Window counts only
// include outcomes still inside the rolling window at the time of the call.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	live := cb.window
	if cb.config.RollingWindow > 0 {
		live = live[cb.expired(cb.clock.Now()):]
	}

	failures := 0
	for _, o := range live {
		if o.failed {
			failures++
		}
	}

	return Snapshot{
		Name:                 cb.name,
		State:                cb.state,
		ConsecutiveFailures:  cb.consecutiveFailures,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		WindowRequests:       len(live),
		WindowFailures:       failures,
		LastFailureAt:        cb.lastFailureAt,
		LastStateChangeAt:    cb.lastStateChangeAt,
	}
}

// record appends an outcome and trims the window. Caller holds the lock.
func (cb *CircuitBreaker) record(now time.Time, failed bool) {
	cb.window = append(cb.window, outcome{at: now, failed: failed})
	if cb.config.RollingWindow <= 0 {
		return
	}

	if drop := cb.expired(now); drop > 0 {
		cb.window = append(cb.window[:0], cb.window[drop:]...)
	}
}

// expired counts the leading window entries older than the rolling window.
func (cb *CircuitBreaker) expired(now time.Time) int {
	cutoff := now.Add(-cb.config.RollingWindow)
	drop := 0
	for drop < len(cb.window) && cb.window[drop].at.Before(cutoff) {
		drop++
	}
	return drop
}

func (cb *CircuitBreaker) clearCounters() {
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.window = cb.window[:0]
}

// setState transitions and returns the change, or nil when the state is
// unchanged. Caller holds the lock.
func (cb *CircuitBreaker) setState(to State, now time.Time) *transition {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.lastStateChangeAt = now
	return &transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t == nil {
		return
	}

	cb.logger.Info("Circuit breaker state changed",
		slog.String("breaker", cb.name),
		slog.String("from", t.from.String()),
		slog.String("to", t.to.String()))

	for _, listener := range cb.listeners {
		cb.safeNotify(listener, t)
	}
}

func (cb *CircuitBreaker) safeNotify(listener StateChangeListener, t *transition) {
	defer func() {
		if r := recover(); r != nil {
			cb.logger.Error("State change listener panicked",
				slog.String("breaker", cb.name),
				slog.Any("panic", r))
		}
	}()
	listener.OnStateChange(cb.name, t.from, t.to)
}
