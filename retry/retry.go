// Package retry provides a bounded retrier with exponential backoff for
// fallible steps against the remote tool, such as page navigation and
// element appearance waits.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// 0 means execute exactly once.
	MaxRetries int

	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

// Delay returns the wait before retry k (1-indexed): BaseDelay * 2^(k-1).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return p.BaseDelay << (retry - 1)
}

// Do runs op up to 1+MaxRetries times, waiting Delay(k) before retry k.
// The first success wins. When every attempt fails, the error from the
// final attempt is returned unchanged so callers can match it with
// errors.Is and errors.As. The wait respects ctx: cancellation during a
// backoff returns ctx.Err() without running another attempt.
func Do[T any](ctx context.Context, p Policy, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			slog.Debug("retrying operation",
				"op", name,
				"retry", attempt,
				"max_retries", p.MaxRetries,
				"delay", delay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}

// DoVoid is Do for operations that produce no value.
func DoVoid(ctx context.Context, p Policy, name string, op func(context.Context) error) error {
	_, err := Do(ctx, p, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
