package metrics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/retry"
)

type EventType string

const (
	EventAttemptFailed       EventType = "attempt_failed"
	EventRetryScheduled      EventType = "retry_scheduled"
	EventSucceeded           EventType = "succeeded"
	EventAborted             EventType = "aborted"
	EventExecutionCompleted  EventType = "execution_completed"
	EventBreakerStateChanged EventType = "breaker_state_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Operation string
	Attempt   int
	Reason    string

	// Set on EventExecutionCompleted.
	Duration   time.Duration
	Delays     []time.Duration
	Categories []string
	Success    bool
	Aborted    bool
	Rejected   bool

	// Set on EventBreakerStateChanged.
	Breaker string
	State   circuitbreaker.State
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Publish enqueues event without blocking. Events are dropped, and
// counted, when the buffer is full.
func (c *Collector) Publish(event MetricEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case c.eventCh <- event:
	default:
		if c.dropped.Add(1)%100 == 1 {
			c.logger.Warn("Metrics buffer full, dropping events",
				slog.Int64("dropped", c.dropped.Load()))
		}
	}
}

func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventAttemptFailed:
		c.metrics.RecordFailedAttempt(event.Operation)

	case EventRetryScheduled:
		c.metrics.RecordRetry(event.Operation)

	case EventSucceeded:
		c.metrics.RecordSuccess(event.Operation)

	case EventAborted:
		c.metrics.RecordAbort(event.Operation, event.Reason)

	case EventExecutionCompleted:
		c.metrics.RecordExecution(event.Operation, Execution{
			Attempts:   event.Attempt,
			Duration:   event.Duration,
			Delays:     event.Delays,
			Categories: event.Categories,
			Success:    event.Success,
			Aborted:    event.Aborted,
			Rejected:   event.Rejected,
		})

	case EventBreakerStateChanged:
		c.metrics.UpdateBreakerState(event.Breaker, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

// Sink returns an event sink that publishes retry lifecycle events for
// operation.
func (c *Collector) Sink(operation string) retry.EventSink {
	return retry.SinkFuncs{
		FailedAttempt: func(_ error, attempt int) {
			c.Publish(MetricEvent{Type: EventAttemptFailed, Operation: operation, Attempt: attempt})
		},
		Retry: func(_ error, attempt int) {
			c.Publish(MetricEvent{Type: EventRetryScheduled, Operation: operation, Attempt: attempt})
		},
		Success: func(_ any, attempts int) {
			c.Publish(MetricEvent{Type: EventSucceeded, Operation: operation, Attempt: attempts})
		},
		Abort: func(_ error, reason string) {
			c.Publish(MetricEvent{Type: EventAborted, Operation: operation, Reason: reason})
		},
	}
}

// OnStateChange lets the collector listen to breakers directly.
func (c *Collector) OnStateChange(name string, _, to circuitbreaker.State) {
	c.Publish(MetricEvent{Type: EventBreakerStateChanged, Breaker: name, State: to})
}

// RecordOutcome publishes the summary of a finished execution.
func RecordOutcome[T any](c *Collector, operation string, out retry.Outcome[T]) {
	categories := make([]string, 0, len(out.Attempts))
	for _, record := range out.Attempts {
		if record.Category != "" {
			categories = append(categories, string(record.Category))
		}
	}

	c.Publish(MetricEvent{
		Type:       EventExecutionCompleted,
		Operation:  operation,
		Attempt:    out.TotalAttempts(),
		Duration:   out.TotalTime,
		Delays:     out.Delays(),
		Categories: categories,
		Success:    out.Success,
		Aborted:    out.Aborted,
		Rejected:   out.CircuitBreakerTripped,
	})
}
