package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultUnitTimeout bounds a unit that specifies no timeout.
const DefaultUnitTimeout = 15 * time.Second

// Status is the terminal state of a unit.
type Status string

// Unit statuses.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Unit is one independently bounded piece of work.
type Unit struct {
	Name    string
	Timeout time.Duration
	Retry   RetryPolicy
	Run     func(ctx context.Context) error
}

// Outcome is the result of a finished unit.
type Outcome struct {
	Unit       string
	Status     Status
	Attempts   int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the unit completed.
func (o Outcome) OK() bool {
	return o.Status == StatusCompleted
}

// Duration is the wall time from start to finish.
func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Observer is notified of every finished unit.
type Observer interface {
	UnitFinished(o Outcome)
}

// Options configures an Engine.
type Options struct {
	// TaskQueue names the queue this engine serves; it appears in logs.
	TaskQueue string

	DefaultTimeout time.Duration
	DefaultRetry   RetryPolicy
	Logger         Logger
	Observer       Observer
}

// Engine runs units in their own goroutines with a timeout, retry policy
// and panic recovery per unit.
//
// Thread Safety: Submit is safe for concurrent use.
type Engine struct {
	queue          string
	defaultTimeout time.Duration
	defaultRetry   RetryPolicy
	logger         Logger
	observer       Observer

	inflight sync.WaitGroup
}

// NewEngine creates a workflow engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		queue:          opts.TaskQueue,
		defaultTimeout: opts.DefaultTimeout,
		defaultRetry:   opts.DefaultRetry,
		logger:         opts.Logger,
		observer:       opts.Observer,
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = DefaultUnitTimeout
	}
	if e.defaultRetry.isZero() {
		e.defaultRetry = DefaultRetryPolicy()
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	return e
}

// Handle tracks a submitted unit.
type Handle struct {
	unit    string
	done    chan struct{}
	outcome Outcome
}

// Done is closed once the unit has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the unit finishes or ctx is done. When ctx ends first
// the returned outcome has StatusCancelled; the unit keeps its own timeout.
func (h *Handle) Wait(ctx context.Context) Outcome {
	select {
	case <-h.done:
		return h.outcome
	case <-ctx.Done():
		return Outcome{Unit: h.unit, Status: StatusCancelled, Err: ctx.Err()}
	}
}

// Submit starts u and returns immediately.
//
// The unit is bounded by u.Timeout (or the engine default) measured from
// submission, covering every attempt and backoff. A zero u.Retry uses the
// engine default policy.
func (e *Engine) Submit(ctx context.Context, u Unit) *Handle {
	timeout := u.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	retry := u.Retry
	if retry.isZero() {
		retry = e.defaultRetry
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	h := &Handle{unit: u.Name, done: make(chan struct{})}

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		h.outcome = e.execute(ctx, u.Name, timeout, retry, u.Run)
		close(h.done)

		if e.observer != nil {
			e.observer.UnitFinished(h.outcome)
		}
	}()
	return h
}

// Drain waits for all in-flight units or until ctx is done.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) execute(parent context.Context, name string, timeout time.Duration, retry RetryPolicy, run func(context.Context) error) Outcome {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	out := Outcome{Unit: name, StartedAt: time.Now()}
	finish := func(status Status, err error) Outcome {
		out.Status = status
		out.Err = err
		out.FinishedAt = time.Now()
		e.logOutcome(out)
		return out
	}

	e.logger.Debug("unit started", "queue", e.queue, "unit", name, "timeout", timeout)

	waits := retry.newBackOff(ctx)
	var lastErr error
	for {
		out.Attempts++

		// Buffered so an abandoned attempt can still deliver and exit.
		result := make(chan error, 1)
		go func() {
			result <- runAttempt(ctx, run)
		}()

		select {
		case err := <-result:
			if err == nil {
				return finish(StatusCompleted, nil)
			}
			lastErr = err
		case <-ctx.Done():
			return finish(e.interrupted(parent, name, timeout, lastErr))
		}

		if ctx.Err() != nil {
			return finish(e.interrupted(parent, name, timeout, lastErr))
		}
		if IsNonRetryable(lastErr) || errors.Is(lastErr, ErrPanic) {
			return finish(StatusFailed, lastErr)
		}

		wait := waits.NextBackOff()
		if wait == backoff.Stop {
			if ctx.Err() != nil {
				return finish(e.interrupted(parent, name, timeout, lastErr))
			}
			return finish(StatusFailed, lastErr)
		}
		e.logger.Debug("unit attempt failed, retrying",
			"unit", name,
			"attempt", out.Attempts,
			"backoff", wait,
			"error", lastErr,
		)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return finish(e.interrupted(parent, name, timeout, lastErr))
		}
	}
}

// interrupted classifies a unit whose context ended before it finished.
func (e *Engine) interrupted(parent context.Context, name string, timeout time.Duration, lastErr error) (Status, error) {
	if errors.Is(parent.Err(), context.Canceled) {
		return StatusCancelled, errors.Join(parent.Err(), lastErr)
	}
	return StatusTimedOut, errors.Join(fmt.Errorf("%w: %s exceeded %s", ErrTimeout, name, timeout), lastErr)
}

func (e *Engine) logOutcome(o Outcome) {
	args := []any{
		"queue", e.queue,
		"unit", o.Unit,
		"status", o.Status,
		"attempts", o.Attempts,
		"duration", o.Duration(),
	}
	if o.OK() {
		e.logger.Info("unit completed", args...)
		return
	}
	e.logger.Warn("unit failed", append(args, "error", o.Err)...)
}

func runAttempt(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return run(ctx)
}
