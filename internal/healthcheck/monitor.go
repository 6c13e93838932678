package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

// StatsSource is satisfied by *circuitbreaker.Registry.
type StatsSource interface {
	Stats() map[string]circuitbreaker.Snapshot
}

// Change is a state difference seen between two polls.
type Change struct {
	Breaker string
	From    circuitbreaker.State
	To      circuitbreaker.State
	Since   time.Time
}

type Monitor struct {
	source   StatsSource
	logger   *slog.Logger
	onChange func(Change)
	last     map[string]circuitbreaker.State
}

// NewMonitor creates a Monitor. onChange may be nil.
func NewMonitor(source StatsSource, logger *slog.Logger, onChange func(Change)) *Monitor {
	return &Monitor{
		source:   source,
		logger:   logger,
		onChange: onChange,
		last:     make(map[string]circuitbreaker.State),
	}
}

// Poll compares current breaker states with the previous poll. Breakers
// seen for the first time count as changed from CLOSED. Poll is not safe
// for concurrent use.
func (m *Monitor) Poll() []Change {
	var changes []Change

	for name, snap := range m.source.Stats() {
		previous, seen := m.last[name]
		if !seen {
			previous = circuitbreaker.StateClosed
		}
		m.last[name] = snap.State

		if previous == snap.State {
			continue
		}

		change := Change{
			Breaker: name,
			From:    previous,
			To:      snap.State,
			Since:   snap.LastStateChangeAt,
		}
		changes = append(changes, change)
		m.report(change, snap)
	}

	return changes
}

func (m *Monitor) report(change Change, snap circuitbreaker.Snapshot) {
	attrs := []any{
		slog.String("breaker", change.Breaker),
		slog.String("from", change.From.String()),
		slog.String("to", change.To.String()),
		slog.Int("window_requests", snap.WindowRequests),
		slog.Int("window_failures", snap.WindowFailures),
	}

	switch change.To {
	case circuitbreaker.StateOpen:
		m.logger.Warn("Breaker is open", attrs...)
	case circuitbreaker.StateClosed:
		m.logger.Info("Breaker is back to closed", attrs...)
	default:
		m.logger.Info("Breaker is probing", attrs...)
	}

	if m.onChange != nil {
		m.onChange(change)
	}
}

// Run polls every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Breaker monitor stopped")
			return

		case <-ticker.C:
			m.Poll()
		}
	}
}
