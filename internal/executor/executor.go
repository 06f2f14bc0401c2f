package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"qclassify/internal/circuit"
)

var (
	// ErrBackendUnavailable marks an execution backend that could not be
	// reached or did not answer in time.
	ErrBackendUnavailable = errors.New("executor: backend unavailable")
	// ErrCompilation marks a program the backend cannot run.
	ErrCompilation = errors.New("executor: compilation error")
)

// Outcomes holds one row per shot and one column per readout slot.
type Outcomes [][]int

// Executor runs a program for a number of shots.
type Executor interface {
	Submit(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error)
}

// Func adapts a function to Executor.
type Func func(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error)

// Submit implements Executor.
func (f Func) Submit(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error) {
	return f(ctx, prog, shots)
}

// WithTimeout bounds every Submit on next by d. The call returns when d
// elapses even if next ignores its context.
func WithTimeout(next Executor, d time.Duration) Executor {
	if d <= 0 {
		return next
	}
	return Func(func(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			out Outcomes
			err error
		}
		done := make(chan result, 1)
		go func() {
			out, err := next.Submit(ctx, prog, shots)
			done <- result{out: out, err: err}
		}()

		select {
		case res := <-done:
			return res.out, res.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &timeoutError{after: d}
			}
			return nil, ctx.Err()
		}
	})
}

// timeoutError matches both ErrBackendUnavailable and context.DeadlineExceeded.
type timeoutError struct {
	after time.Duration
}

func (e *timeoutError) Error() string {
	return "executor: submit timed out after " + e.after.String()
}

func (e *timeoutError) Is(target error) bool {
	return target == ErrBackendUnavailable || target == context.DeadlineExceeded
}
