package tester

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollUntilFirstEvalRunsImmediately(t *testing.T) {
	calls := 0
	start := time.Now()
	err := pollUntil(context.Background(), time.Minute, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("pollUntil returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("eval called %d times, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("first eval waited %v, want immediate", elapsed)
	}
}

func TestPollUntilStopsWhenDone(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("pollUntil returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("eval called %d times, want 3", calls)
	}
}

func TestPollUntilPropagatesEvalError(t *testing.T) {
	sentinel := errors.New("observe failed")
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		if calls == 2 {
			return false, sentinel
		}
		return false, nil
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("pollUntil returned %v, want sentinel", err)
	}
	if calls != 2 {
		t.Errorf("eval called %d times, want 2", calls)
	}
}

func TestPollUntilHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := pollUntil(ctx, 5*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("pollUntil returned %v, want context.DeadlineExceeded", err)
	}
}
