package retry

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task pairs an operation with its execution options.
type Task[T any] struct {
	Operation Operation[T]
	Options   Options
}

type BatchOptions struct {
	// FailFast runs tasks one after another and stops at the first
	// failed outcome.
	FailFast bool
	// MaxConcurrent bounds how many tasks run at once. Zero or less runs
	// every task concurrently.
	MaxConcurrent int
}

// ErrBatchFailed is returned by ExecuteAll in fail-fast mode.
var ErrBatchFailed = errors.New("batch task failed")

// ExecuteAll runs every task through o and returns outcomes in input
// order. Only fail-fast mode returns an error; otherwise failures are
// reported through each Outcome.
func ExecuteAll[T any](ctx context.Context, o *Orchestrator, tasks []Task[T], opts BatchOptions) ([]Outcome[T], error) {
	if opts.FailFast {
		return executeSequential(ctx, o, tasks)
	}

	size := opts.MaxConcurrent
	if size <= 0 || size > len(tasks) {
		size = len(tasks)
	}

	outcomes := make([]Outcome[T], len(tasks))
	for start := 0; start < len(tasks); start += size {
		end := min(start+size, len(tasks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				outcomes[i] = Execute(ctx, o, tasks[i].Operation, tasks[i].Options)
				return nil
			})
		}
		_ = g.Wait()
	}

	return outcomes, nil
}

func executeSequential[T any](ctx context.Context, o *Orchestrator, tasks []Task[T]) ([]Outcome[T], error) {
	outcomes := make([]Outcome[T], 0, len(tasks))
	for i, task := range tasks {
		out := Execute(ctx, o, task.Operation, task.Options)
		outcomes = append(outcomes, out)
		if !out.Success {
			return outcomes, fmt.Errorf("%w: task %d (%s): %w", ErrBatchFailed, i, task.Options.Name, out.Err)
		}
	}
	return outcomes, nil
}
