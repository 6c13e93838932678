package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

const maxSamples = 1000

type operationStats struct {
	executions        int64
	attempts          int64
	failedAttempts    int64
	retries           int64
	successes         int64
	failures          int64
	aborts            map[string]int64
	circuitRejections int64
	categories        map[string]int64
	delays            []time.Duration
	durations         []time.Duration
}

type Metrics struct {
	mutex      sync.RWMutex
	operations map[string]*operationStats
	breakers   map[string]circuitbreaker.State
	startTime  time.Time
}

// Execution is the per-call summary fed by RecordOutcome.
type Execution struct {
	Attempts   int
	Duration   time.Duration
	Delays     []time.Duration
	Categories []string
	Success    bool
	Aborted    bool
	Rejected   bool
}

type Snapshot struct {
	TotalExecutions int64                       `json:"total_executions"`
	Uptime          time.Duration               `json:"uptime"`
	Operations      map[string]OperationMetrics `json:"operations"`
	Breakers        map[string]string           `json:"breakers"`
}

type OperationMetrics struct {
	Executions        int64            `json:"executions"`
	Attempts          int64            `json:"attempts"`
	FailedAttempts    int64            `json:"failed_attempts"`
	Retries           int64            `json:"retries"`
	Successes         int64            `json:"successes"`
	Failures          int64            `json:"failures"`
	Aborts            map[string]int64 `json:"aborts"`
	CircuitRejections int64            `json:"circuit_rejections"`
	Categories        map[string]int64 `json:"categories"`
	AvgDelay          time.Duration    `json:"avg_delay"`
	P50Delay          time.Duration    `json:"p50_delay"`
	P95Delay          time.Duration    `json:"p95_delay"`
	P99Delay          time.Duration    `json:"p99_delay"`
	AvgDuration       time.Duration    `json:"avg_duration"`
	P95Duration       time.Duration    `json:"p95_duration"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		operations: make(map[string]*operationStats),
		breakers:   make(map[string]circuitbreaker.State),
		startTime:  time.Now(),
	}
}

// stats must be called with the write lock held.
func (m *Metrics) stats(operation string) *operationStats {
	s, ok := m.operations[operation]
	if !ok {
		s = &operationStats{
			aborts:     make(map[string]int64),
			categories: make(map[string]int64),
		}
		m.operations[operation] = s
	}
	return s
}

func (m *Metrics) RecordFailedAttempt(operation string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(operation).failedAttempts++
}

func (m *Metrics) RecordRetry(operation string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(operation).retries++
}

func (m *Metrics) RecordSuccess(operation string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(operation).successes++
}

// RecordAbort counts aborts by the kind of reason, the text before the
// first colon.
func (m *Metrics) RecordAbort(operation, reason string) {
	kind, _, _ := strings.Cut(reason, ":")

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(operation).aborts[kind]++
}

func (m *Metrics) RecordExecution(operation string, e Execution) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := m.stats(operation)
	s.executions++
	s.attempts += int64(e.Attempts)
	if e.Rejected {
		s.circuitRejections++
	}
	if !e.Success && !e.Aborted && !e.Rejected {
		s.failures++
	}
	for _, category := range e.Categories {
		s.categories[category]++
	}

	s.delays = appendCapped(s.delays, e.Delays...)
	s.durations = appendCapped(s.durations, e.Duration)
}

func (m *Metrics) UpdateBreakerState(name string, state circuitbreaker.State) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakers[name] = state
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:     time.Since(m.startTime),
		Operations: make(map[string]OperationMetrics, len(m.operations)),
		Breakers:   make(map[string]string, len(m.breakers)),
	}

	for name, s := range m.operations {
		snap.TotalExecutions += s.executions

		om := OperationMetrics{
			Executions:        s.executions,
			Attempts:          s.attempts,
			FailedAttempts:    s.failedAttempts,
			Retries:           s.retries,
			Successes:         s.successes,
			Failures:          s.failures,
			Aborts:            cloneCounts(s.aborts),
			CircuitRejections: s.circuitRejections,
			Categories:        cloneCounts(s.categories),
		}

		if delays := sorted(s.delays); len(delays) > 0 {
			om.AvgDelay = average(delays)
			om.P50Delay = percentile(delays, 0.50)
			om.P95Delay = percentile(delays, 0.95)
			om.P99Delay = percentile(delays, 0.99)
		}
		if durations := sorted(s.durations); len(durations) > 0 {
			om.AvgDuration = average(durations)
			om.P95Duration = percentile(durations, 0.95)
		}

		snap.Operations[name] = om
	}

	for name, state := range m.breakers {
		snap.Breakers[name] = state.String()
	}

	return snap
}

func appendCapped(samples []time.Duration, values ...time.Duration) []time.Duration {
	samples = append(samples, values...)
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	return samples
}

func cloneCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func sorted(durations []time.Duration) []time.Duration {
	out := make([]time.Duration, len(durations))
	copy(out, durations)
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
