package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1600 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.retry); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestDoFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, "op",
		func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != 42 {
		t.Errorf("Do = %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, "op",
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("not yet")
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" {
		t.Errorf("Do = %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestDoExhaustionReturnsOriginalError(t *testing.T) {
	sentinel := errors.New("navigation refused")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, "op",
		func(ctx context.Context) (int, error) {
			calls++
			return 0, sentinel
		})
	if calls != 3 {
		t.Errorf("op called %d times, want 3 (1 attempt + 2 retries)", calls)
	}
	// The caller must see the original error, not a wrapped copy.
	if err != sentinel {
		t.Errorf("Do returned %v, want the sentinel itself", err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("errors.Is(err, sentinel) = false, want true")
	}
}

func TestDoZeroRetriesExecutesOnce(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 0, BaseDelay: time.Second}, "op",
		func(ctx context.Context) (int, error) {
			calls++
			return 0, sentinel
		})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if err != sentinel {
		t.Errorf("Do returned %v, want sentinel", err)
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, Policy{MaxRetries: 5, BaseDelay: time.Minute}, "op",
			func(ctx context.Context) (int, error) {
				calls++
				return 0, errors.New("fail")
			})
		done <- err
	}()

	// Give the first attempt time to fail and enter the backoff wait.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (no attempt after cancel)", calls)
	}
}

func TestDoVoid(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	err := DoVoid(context.Background(), Policy{MaxRetries: 1, BaseDelay: time.Millisecond}, "op",
		func(ctx context.Context) error {
			calls++
			return sentinel
		})
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
	if err != sentinel {
		t.Errorf("DoVoid returned %v, want sentinel", err)
	}
}
