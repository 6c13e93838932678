package circuitbreaker

import (
	"log/slog"
	"sync"
)

// Registry hands out one breaker per protected resource name.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	config   Config
	opts     []Option
	logger   *slog.Logger
}

// NewRegistry creates breakers lazily with config and opts.
func NewRegistry(config Config, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		logger:   logger,
	}
}

func (r *Registry) Get(name string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cb = New(name, r.config, r.opts...)
	r.breakers[name] = cb
	r.logger.Debug("Circuit breaker created", slog.String("breaker", name))
	return cb
}

// Reset forces the named breaker CLOSED. It reports false for unknown names.
func (r *Registry) Reset(name string) bool {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if !exists {
		return false
	}
	cb.Reset()
	return true
}

// ResetAll forces every breaker CLOSED. Breakers stay registered so that
// holders keep sharing the same instance.
func (r *Registry) ResetAll() {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, cb := range r.breakers {
		cb.Reset()
	}
}

func (r *Registry) Stats() map[string]Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]Snapshot, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.Snapshot()
	}
	return stats
}
