package tester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ahsanalpha/google-rich-results-automation/models"
)

// scriptedSurface replays a fixed sequence of snapshots and records every
// interaction the runner performs. When the script runs out, the last
// snapshot holds, as a real page's condition would.
type scriptedSurface struct {
	snapshots []Snapshot
	idx       int

	submits        []string
	activates      int
	dismissMissing bool
	submitErr      error
	observeErr     error
}

func (s *scriptedSurface) Observe(ctx context.Context) (Snapshot, error) {
	if s.observeErr != nil {
		return Snapshot{}, s.observeErr
	}
	if len(s.snapshots) == 0 {
		return Snapshot{}, nil
	}
	if s.idx >= len(s.snapshots) {
		return s.snapshots[len(s.snapshots)-1], nil
	}
	snap := s.snapshots[s.idx]
	s.idx++
	return snap, nil
}

func (s *scriptedSurface) SubmitInput(ctx context.Context, value string) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submits = append(s.submits, value)
	return nil
}

func (s *scriptedSurface) ActivateControl(ctx context.Context, selector, pattern string) bool {
	s.activates++
	return !s.dismissMissing
}

var (
	snapNeutral  = Snapshot{Text: "Rich Results Test"}
	snapSpinner  = Snapshot{HasSpinner: true}
	snapError    = Snapshot{Text: "Something went wrong"}
	snapComplete = Snapshot{Text: "Page is eligible", HasViewDetails: true}
)

func testRunner(t *testing.T, maxRecovery int) *Runner {
	t.Helper()
	return NewRunner(testClassifier(t), RunnerOptions{
		PollInterval:        2 * time.Millisecond,
		SettleDelay:         time.Millisecond,
		MaxRecoveryAttempts: maxRecovery,
		DismissSelector:     "button",
		DismissPattern:      "/dismiss/i",
	})
}

func checkCode(t *testing.T, err error, want string) {
	t.Helper()
	var ce *models.CheckError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a CheckError", err)
	}
	if ce.Code != want {
		t.Errorf("error code = %s, want %s", ce.Code, want)
	}
}

// Scenario: clean run. Two quiet observations, then a completion signal.
func TestRunCompletesAfterWaiting(t *testing.T) {
	surf := &scriptedSurface{snapshots: []Snapshot{snapNeutral, snapSpinner, snapComplete}}
	res, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.CompletedBy != CompletedByViewDetails {
		t.Errorf("CompletedBy = %q, want %q", res.CompletedBy, CompletedByViewDetails)
	}
	if res.RecoveryAttempts != 0 {
		t.Errorf("RecoveryAttempts = %d, want 0", res.RecoveryAttempts)
	}
	if res.Polls != 3 {
		t.Errorf("Polls = %d, want 3", res.Polls)
	}
	if len(surf.submits) != 1 {
		t.Errorf("submits = %d, want 1", len(surf.submits))
	}
}

// Scenario: the tool errors on submission, keeps erroring through one
// recovery, clears on the second, then completes.
func TestRunRecoversFromTransientError(t *testing.T) {
	surf := &scriptedSurface{snapshots: []Snapshot{snapError, snapError, snapNeutral, snapComplete}}
	res, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.CompletedBy != CompletedByViewDetails {
		t.Errorf("CompletedBy = %q, want %q", res.CompletedBy, CompletedByViewDetails)
	}
	if res.RecoveryAttempts != 2 {
		t.Errorf("RecoveryAttempts = %d, want 2", res.RecoveryAttempts)
	}
	// Initial submission plus one resubmit per recovery attempt.
	if len(surf.submits) != 3 {
		t.Errorf("submits = %d, want 3", len(surf.submits))
	}
	if surf.activates != 2 {
		t.Errorf("dismiss activations = %d, want 2", surf.activates)
	}
}

// Scenario: the error never clears. The budget is five attempts, so the
// sixth error observation fails the run.
func TestRunFailsWhenErrorPersists(t *testing.T) {
	surf := &scriptedSurface{snapshots: []Snapshot{snapError}}
	res, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	if res != nil {
		t.Fatalf("Run returned a result alongside failure: %+v", res)
	}
	checkCode(t, err, models.ErrCodeRemoteError)
	if surf.activates != 5 {
		t.Errorf("dismiss activations = %d, want 5", surf.activates)
	}
	if len(surf.submits) != 6 {
		t.Errorf("submits = %d, want 6 (1 initial + 5 resubmits)", len(surf.submits))
	}
}

// Scenario: the page never settles before the deadline.
func TestRunFailsOnDeadline(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"processing forever", snapSpinner},
		{"indeterminate forever", snapNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
			defer cancel()

			surf := &scriptedSurface{snapshots: []Snapshot{tt.snap}}
			_, err := testRunner(t, 5).Run(ctx, surf, "https://example.com")
			checkCode(t, err, models.ErrCodeDeadline)
		})
	}
}

// Scenario: missing input fails fast with zero remote interactions.
func TestRunFailsWithoutTarget(t *testing.T) {
	surf := &scriptedSurface{snapshots: []Snapshot{snapComplete}}
	_, err := testRunner(t, 5).Run(context.Background(), surf, "")
	checkCode(t, err, models.ErrCodePrecondition)
	if len(surf.submits) != 0 || surf.activates != 0 || surf.idx != 0 {
		t.Errorf("surface was touched: submits=%d activates=%d observes=%d",
			len(surf.submits), surf.activates, surf.idx)
	}
}

// While waiting, error text alone does not restart recovery; a completion
// signal on the same snapshot still completes the run.
func TestRunWaitingIgnoresErrorText(t *testing.T) {
	errorWithDetails := Snapshot{Text: "Something went wrong", HasViewDetails: true}
	surf := &scriptedSurface{snapshots: []Snapshot{snapNeutral, snapError, errorWithDetails}}
	res, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.CompletedBy != CompletedByViewDetails {
		t.Errorf("CompletedBy = %q, want %q", res.CompletedBy, CompletedByViewDetails)
	}
	if res.RecoveryAttempts != 0 {
		t.Errorf("RecoveryAttempts = %d, want 0", res.RecoveryAttempts)
	}
}

// A missing dismiss control is not an error; recovery resubmits regardless.
func TestRunRecoversWithoutDismissControl(t *testing.T) {
	surf := &scriptedSurface{
		snapshots:      []Snapshot{snapError, snapNeutral, snapComplete},
		dismissMissing: true,
	}
	res, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.RecoveryAttempts != 1 {
		t.Errorf("RecoveryAttempts = %d, want 1", res.RecoveryAttempts)
	}
	if len(surf.submits) != 2 {
		t.Errorf("submits = %d, want 2", len(surf.submits))
	}
}

// Zero recovery budget: the first error observation is terminal.
func TestRunZeroRecoveryBudget(t *testing.T) {
	surf := &scriptedSurface{snapshots: []Snapshot{snapError}}
	_, err := testRunner(t, 0).Run(context.Background(), surf, "https://example.com")
	checkCode(t, err, models.ErrCodeRemoteError)
	if surf.activates != 0 {
		t.Errorf("dismiss activations = %d, want 0", surf.activates)
	}
	if len(surf.submits) != 1 {
		t.Errorf("submits = %d, want 1 (initial only)", len(surf.submits))
	}
}

func TestRunCategorizesSubmitFailure(t *testing.T) {
	surf := &scriptedSurface{submitErr: errors.New("input detached")}
	_, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	checkCode(t, err, models.ErrCodeInternal)
}

func TestRunCategorizesObserveDeadline(t *testing.T) {
	surf := &scriptedSurface{observeErr: context.DeadlineExceeded}
	_, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	checkCode(t, err, models.ErrCodeDeadline)
}

// Typed errors from the surface keep their code through categorize.
func TestRunKeepsTypedErrors(t *testing.T) {
	surf := &scriptedSurface{
		submitErr: models.NewCheckError(models.ErrCodeBrowserCrash, "page connection lost", errors.New("ws closed")),
	}
	_, err := testRunner(t, 5).Run(context.Background(), surf, "https://example.com")
	checkCode(t, err, models.ErrCodeBrowserCrash)
}
