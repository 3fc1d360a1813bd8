package tester

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/metrics"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
	"github.com/Ahsanalpha/google-rich-results-automation/preflight"
	"github.com/Ahsanalpha/google-rich-results-automation/retry"
)

// Service runs complete checks end to end: target preflight, tool-page
// navigation, the submit/recover/wait machine, and the final capture.
type Service struct {
	opener     PageOpener
	pre        *preflight.Checker // nil disables the target pre-check
	classifier *Classifier
	cfg        *config.Config
}

// NewService wires the orchestrator. It fails when the configured
// classification patterns do not compile.
func NewService(opener PageOpener, pre *preflight.Checker, cfg *config.Config) (*Service, error) {
	classifier, err := NewClassifier(cfg.Runner)
	if err != nil {
		return nil, err
	}
	return &Service{opener: opener, pre: pre, classifier: classifier, cfg: cfg}, nil
}

// RunCheck executes one check under the request's deadline and returns the
// finished response, or a *models.CheckError describing the terminal
// failure. Intermediate retries and recovery attempts surface only as logs.
func (s *Service) RunCheck(ctx context.Context, req *models.CheckRequest) (resp *models.CheckResponse, err error) {
	start := time.Now()
	defer func() {
		metrics.ChecksTotal.WithLabelValues(outcomeLabel(err)).Inc()
		metrics.CheckDuration.Observe(time.Since(start).Seconds())
	}()

	// Configured defaults apply before the request's own fallbacks.
	if req.Timeout == 0 {
		req.Timeout = int(s.cfg.Runner.Timeout.Seconds())
	}
	if req.OutputFormat == "" {
		req.OutputFormat = s.cfg.Capture.Format
	}
	if req.Quality == 0 {
		req.Quality = s.cfg.Capture.Quality
	}
	req.Defaults()
	if err = s.validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
	defer cancel()

	resp = &models.CheckResponse{URL: req.URL}

	if s.pre != nil && s.preflightEnabled(req) {
		info, perr := s.pre.Check(ctx, req.URL)
		resp.Target = info
		switch {
		case perr != nil:
			slog.Warn("target preflight failed", "url", req.URL, "error", perr)
		case info.StructuredBlocks == 0:
			slog.Warn("no JSON-LD structured data found on target", "url", req.URL)
		}
	}

	page, err := s.opener.OpenPage(ctx, req.Stealth || s.cfg.Browser.Stealth)
	if err != nil {
		err = categorize(err)
		return nil, err
	}
	defer page.Close()

	policy := retry.Policy{
		MaxRetries: intOr(req.Retries, s.cfg.Runner.NavRetries),
		BaseDelay:  s.cfg.Runner.NavRetryDelay,
	}

	navStart := time.Now()
	if err = retry.DoVoid(ctx, policy, "navigate_tool", func(ctx context.Context) error {
		return page.Navigate(ctx, s.cfg.Runner.ToolURL)
	}); err != nil {
		err = categorize(err)
		return nil, err
	}
	if err = retry.DoVoid(ctx, policy, "wait_input", func(ctx context.Context) error {
		return page.WaitVisible(ctx, s.cfg.Runner.InputSelector)
	}); err != nil {
		err = categorize(err)
		return nil, err
	}
	resp.Timing.NavigationMs = time.Since(navStart).Milliseconds()

	runner := NewRunner(s.classifier, RunnerOptions{
		PollInterval:        s.cfg.Runner.PollInterval,
		SettleDelay:         s.cfg.Runner.SettleDelay,
		MaxRecoveryAttempts: intOr(req.MaxRecoveryAttempts, s.cfg.Runner.MaxRecoveryAttempts),
		DismissSelector:     s.cfg.Runner.DismissSelector,
		DismissPattern:      s.cfg.Runner.DismissPattern,
	})

	waitStart := time.Now()
	run, err := runner.Run(ctx, page, req.URL)
	if err != nil {
		return nil, err
	}
	resp.Timing.WaitMs = time.Since(waitStart).Milliseconds()
	resp.CompletedBy = run.CompletedBy
	resp.RecoveryAttempts = run.RecoveryAttempts
	resp.Polls = run.Polls
	metrics.RecoveryAttemptsTotal.Add(float64(run.RecoveryAttempts))

	capStart := time.Now()
	img, err := page.Capture(ctx, s.region(req), req.OutputFormat, req.Quality)
	if err != nil {
		err = categorize(err)
		return nil, err
	}
	resp.Timing.CaptureMs = time.Since(capStart).Milliseconds()
	resp.Screenshot = base64.StdEncoding.EncodeToString(img)

	if s.cfg.Capture.OutputDir != "" {
		path, werr := writeArtifact(s.cfg.Capture.OutputDir, img, req.OutputFormat)
		if werr != nil {
			slog.Warn("could not persist screenshot", "dir", s.cfg.Capture.OutputDir, "error", werr)
		} else {
			resp.ScreenshotPath = path
		}
	}

	resp.Success = true
	resp.Timing.TotalMs = time.Since(start).Milliseconds()
	return resp, nil
}

func (s *Service) validate(req *models.CheckRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return models.NewCheckError(models.ErrCodePrecondition, "target URL is required", nil)
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewCheckError(models.ErrCodeInvalidInput, "target URL must be absolute http(s)", err)
	}
	if req.Region != nil && (req.Region.Width <= 0 || req.Region.Height <= 0) {
		return models.NewCheckError(models.ErrCodeInvalidInput, "capture region must have positive width and height", nil)
	}
	return nil
}

func (s *Service) preflightEnabled(req *models.CheckRequest) bool {
	if req.Preflight != nil {
		return *req.Preflight
	}
	return s.cfg.Preflight.Enabled
}

func (s *Service) region(req *models.CheckRequest) models.Region {
	if req.Region != nil {
		return *req.Region
	}
	return models.Region{
		X:      s.cfg.Capture.X,
		Y:      s.cfg.Capture.Y,
		Width:  s.cfg.Capture.Width,
		Height: s.cfg.Capture.Height,
	}
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func outcomeLabel(err error) string {
	if err == nil {
		return "complete"
	}
	var ce *models.CheckError
	if errors.As(err, &ce) {
		return strings.ToLower(ce.Code)
	}
	return strings.ToLower(models.ErrCodeInternal)
}

// writeArtifact persists the capture under a timestamped name and returns
// the full path.
func writeArtifact(dir string, img []byte, format string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := "png"
	if format == "jpeg" {
		ext = "jpg"
	}
	name := fmt.Sprintf("richtest-%s.%s", time.Now().Format("20060102-150405.000"), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
