package tester

import (
	"context"
	"time"
)

// pollUntil runs eval immediately, then once per interval tick, until eval
// reports done or returns an error, or ctx is cancelled (returning
// ctx.Err()). Both the error-recovery loop and the completion wait run on
// this one primitive so the backoff/deadline handling exists exactly once.
func pollUntil(ctx context.Context, interval time.Duration, eval func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := eval(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
