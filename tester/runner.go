package tester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ahsanalpha/google-rich-results-automation/models"
)

// State names the phases of one check. Complete and Failed are terminal.
type State int

const (
	StateSubmitted State = iota
	StateErrorRecovery
	StateWaiting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateErrorRecovery:
		return "error_recovery"
	case StateWaiting:
		return "waiting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// errRecoveryExhausted marks the recovery loop giving up. Internal to the
// package; callers see a typed REMOTE_TRANSIENT_ERROR instead.
var errRecoveryExhausted = errors.New("recovery attempts exhausted")

// RunnerOptions bound one run.
type RunnerOptions struct {
	// PollInterval is the delay between observations while waiting for a
	// completion signal.
	PollInterval time.Duration

	// SettleDelay is the pause after a dismiss-and-resubmit before the
	// page is observed again.
	SettleDelay time.Duration

	// MaxRecoveryAttempts bounds dismiss-and-resubmit cycles.
	MaxRecoveryAttempts int

	// DismissSelector and DismissPattern locate the control that closes
	// the transient error notice.
	DismissSelector string
	DismissPattern  string
}

// RunResult reports a run that reached Complete.
type RunResult struct {
	// CompletedBy names the completion signal that ended the wait.
	CompletedBy string

	// RecoveryAttempts and Polls are monotonic counters over the whole
	// run; they are never reset by state transitions.
	RecoveryAttempts int
	Polls            int

	Elapsed time.Duration
}

// Runner owns the submit -> error-recovery -> completion-wait sequence for
// one task. The surface it drives belongs exclusively to the running task
// until Run returns; concurrent use is a caller bug, not defended against.
type Runner struct {
	classifier *Classifier
	opts       RunnerOptions
}

// NewRunner builds a runner. Non-positive intervals are normalized so the
// tickers never panic.
func NewRunner(classifier *Classifier, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = opts.PollInterval
	}
	if opts.MaxRecoveryAttempts < 0 {
		opts.MaxRecoveryAttempts = 0
	}
	return &Runner{classifier: classifier, opts: opts}
}

// Run submits target into the tool and drives the state machine until a
// terminal state. The overall deadline is whatever ctx carries; when it
// expires mid-wait the run is abandoned with DEADLINE_EXCEEDED. An empty
// target fails PRECONDITION_MISSING before any surface interaction.
func (r *Runner) Run(ctx context.Context, surf Surface, target string) (*RunResult, error) {
	if target == "" {
		return nil, models.NewCheckError(models.ErrCodePrecondition, "target URL is required", nil)
	}

	start := time.Now()
	res := &RunResult{}

	slog.Info("submitting target to tool", "url", target)
	if err := surf.SubmitInput(ctx, target); err != nil {
		return nil, categorize(err)
	}

	snap, err := surf.Observe(ctx)
	if err != nil {
		return nil, categorize(err)
	}
	res.Polls++

	state := StateSubmitted
	if r.classifier.Classify(snap).Error {
		slog.Warn("transient tool error detected on submission",
			"from", state, "to", StateErrorRecovery)
		state = StateErrorRecovery
		if err := r.recover(ctx, surf, target, res); err != nil {
			return nil, err
		}
	}

	slog.Debug("waiting for completion signal", "from", state, "to", StateWaiting)
	err = pollUntil(ctx, r.opts.PollInterval, func(ctx context.Context) (bool, error) {
		snap, err := surf.Observe(ctx)
		if err != nil {
			return false, err
		}
		res.Polls++
		obs := r.classifier.Classify(snap)
		if obs.Processing {
			slog.Debug("analysis still in progress", "polls", res.Polls)
			return false, nil
		}
		if obs.CompletedBy != "" {
			res.CompletedBy = obs.CompletedBy
			return true, nil
		}
		// Neither processing nor completion: not settled yet. Waiting is
		// the conservative read; completion is never inferred from absence.
		slog.Debug("no signal observed", "signal", obs.Signal(), "polls", res.Polls)
		return false, nil
	})
	if err != nil {
		return nil, categorize(err)
	}

	res.Elapsed = time.Since(start)
	slog.Info("analysis complete",
		"completed_by", res.CompletedBy,
		"polls", res.Polls,
		"recovery_attempts", res.RecoveryAttempts,
		"elapsed", res.Elapsed)
	return res, nil
}

// recover drives the dismiss-and-resubmit loop until the error signal
// clears or the attempt budget is spent. One attempt is: activate the
// dismiss control if present (absence is fine), resubmit the target, wait
// the settle delay, re-observe.
func (r *Runner) recover(ctx context.Context, surf Surface, target string, res *RunResult) error {
	first := true
	err := pollUntil(ctx, r.opts.SettleDelay, func(ctx context.Context) (bool, error) {
		if !first {
			snap, err := surf.Observe(ctx)
			if err != nil {
				return false, err
			}
			res.Polls++
			if !r.classifier.Classify(snap).Error {
				slog.Info("tool error cleared",
					"recovery_attempts", res.RecoveryAttempts,
					"from", StateErrorRecovery, "to", StateWaiting)
				return true, nil
			}
		}
		first = false

		if res.RecoveryAttempts >= r.opts.MaxRecoveryAttempts {
			return false, errRecoveryExhausted
		}
		res.RecoveryAttempts++
		slog.Warn("recovering from transient tool error",
			"attempt", res.RecoveryAttempts,
			"max_attempts", r.opts.MaxRecoveryAttempts)

		dismissed := surf.ActivateControl(ctx, r.opts.DismissSelector, r.opts.DismissPattern)
		if !dismissed {
			slog.Debug("no dismiss control found, resubmitting anyway")
		}
		if err := surf.SubmitInput(ctx, target); err != nil {
			return false, err
		}
		return false, nil
	})

	if errors.Is(err, errRecoveryExhausted) {
		slog.Error("recovery budget exhausted",
			"attempts", res.RecoveryAttempts, "from", StateErrorRecovery, "to", StateFailed)
		return models.NewCheckError(models.ErrCodeRemoteError,
			fmt.Sprintf("tool kept reporting a transient error after %d recovery attempts", res.RecoveryAttempts),
			nil)
	}
	if err != nil {
		return categorize(err)
	}
	return nil
}

// categorize maps raw failures onto the error taxonomy. Typed errors pass
// through untouched so codes assigned closer to the failure win.
func categorize(err error) error {
	var ce *models.CheckError
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCheckError(models.ErrCodeDeadline, "timed out waiting for completion", err)
	case errors.Is(err, context.Canceled):
		return models.NewCheckError(models.ErrCodeDeadline, "check cancelled before completion", err)
	default:
		return models.NewCheckError(models.ErrCodeInternal, "page interaction failed", err)
	}
}
