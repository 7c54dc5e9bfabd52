// Package retry runs operations with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMaxAttempts indicates that every attempt failed.
var ErrMaxAttempts = errors.New("max attempts exceeded")

type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// PermanentError marks a failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &PermanentError{Err: err}
}

// Do calls op until it succeeds, returns a permanent error, the context is
// done, or the attempt budget is spent.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 250 * time.Millisecond
	}

	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}

	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var permanent *PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}

		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttempts, attempt, err)
		}

		slog.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}

		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}
