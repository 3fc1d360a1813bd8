package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/metrics"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
	"github.com/Ahsanalpha/google-rich-results-automation/tester"
)

const (
	// navTimeout bounds a single navigation attempt so the retrier gets
	// a chance to re-run it within the overall check deadline.
	navTimeout = 15 * time.Second

	// actionTimeout bounds individual page interactions (find, click, type).
	actionTimeout = 10 * time.Second

	// probeTimeout bounds best-effort lookups that must not stall a check.
	probeTimeout = 2 * time.Second
)

// Page is one pooled browser tab bound to a single check.
// All methods re-bind the underlying rod page to the caller's context so
// deadline and cancellation propagate into every devtools call.
type Page struct {
	page    *rod.Page
	session *Session
	cfg     config.RunnerConfig
}

// Navigate loads the URL and waits for the DOM to settle.
func (pg *Page) Navigate(ctx context.Context, url string) error {
	actionCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	p := pg.page.Context(actionCtx)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "tool page navigation failed")
	}

	// Best-effort settle: the page is usable even if stability detection
	// times out, the poll loop tolerates a still-moving DOM.
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not stabilize after navigation, continuing", "error", err)
	}
	return nil
}

// WaitVisible blocks until an element matching the selector is visible.
func (pg *Page) WaitVisible(ctx context.Context, selector string) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	p := pg.page.Context(actionCtx)
	el, err := p.Element(selector)
	if err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "input control not found on tool page")
	}
	if err := el.WaitVisible(); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "input control never became visible")
	}
	return nil
}

// Observe captures the facts of the current render in one pass: visible
// text plus the presence of the spinner, the view-details control, and the
// structured-data block. Element probes are best-effort; only a failure to
// read the document itself is an error.
func (pg *Page) Observe(ctx context.Context) (tester.Snapshot, error) {
	p := pg.page.Context(ctx)

	html, err := p.HTML()
	if err != nil {
		return tester.Snapshot{}, categorizeError(err, models.ErrCodeBrowserCrash, "failed to read page content")
	}

	snap := tester.Snapshot{Text: visibleText([]byte(html))}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	pp := pg.page.Context(probeCtx)

	if has, _, probeErr := pp.Has(pg.cfg.SpinnerSelector); probeErr == nil {
		snap.HasSpinner = has
	} else {
		slog.Debug("spinner probe failed", "error", probeErr)
	}
	if has, _, probeErr := pp.HasR(pg.cfg.ViewDetailsSelector, pg.cfg.ViewDetailsPattern); probeErr == nil {
		snap.HasViewDetails = has
	} else {
		slog.Debug("view-details probe failed", "error", probeErr)
	}
	if has, _, probeErr := pp.Has(pg.cfg.DataBlockSelector); probeErr == nil {
		snap.HasDataBlock = has
	} else {
		slog.Debug("data-block probe failed", "error", probeErr)
	}

	return snap, nil
}

// SubmitInput fills the tool's URL field and submits it with Enter.
// The field is clicked through a real mouse movement when its geometry is
// known; when the layout gives no box to aim at it falls back to focusing
// the element directly.
func (pg *Page) SubmitInput(ctx context.Context, value string) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	p := pg.page.Context(actionCtx)
	el, err := p.Element(pg.cfg.InputSelector)
	if err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "tool input field not found")
	}

	if pt := elementPoint(el); pt != nil {
		moveErr := p.Mouse.MoveTo(*pt)
		clickErr := p.Mouse.Click(proto.InputMouseButtonLeft, 1)
		if moveErr != nil || clickErr != nil {
			slog.Debug("mouse interaction failed, falling back to focus",
				"moveError", moveErr, "clickError", clickErr)
			if focusErr := el.Focus(); focusErr != nil {
				return categorizeError(focusErr, models.ErrCodeNavigation, "could not focus input field")
			}
		}
	} else {
		if focusErr := el.Focus(); focusErr != nil {
			return categorizeError(focusErr, models.ErrCodeNavigation, "could not focus input field")
		}
	}

	// Resubmission during recovery types over the previous value.
	if selErr := el.SelectAllText(); selErr != nil {
		slog.Debug("select-all before input failed", "error", selErr)
	}
	if err := el.Input(value); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "failed to type into input field")
	}
	if err := p.Keyboard.Press(input.Enter); err != nil {
		return categorizeError(err, models.ErrCodeNavigation, "failed to submit input")
	}
	return nil
}

// ActivateControl clicks the first control matching selector whose text
// matches the JS regex pattern. It reports whether a control was activated;
// absence and click failures are not errors, the caller decides whether a
// missing control matters.
func (pg *Page) ActivateControl(ctx context.Context, selector, pattern string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	p := pg.page.Context(probeCtx)
	has, el, err := p.HasR(selector, pattern)
	if err != nil || !has || el == nil {
		return false
	}
	if clickErr := el.Click(proto.InputMouseButtonLeft, 1); clickErr != nil {
		slog.Debug("control click failed", "selector", selector, "error", clickErr)
		return false
	}
	return true
}

// Capture screenshots the given viewport region.
func (pg *Page) Capture(ctx context.Context, region models.Region, format string, quality int) ([]byte, error) {
	p := pg.page.Context(ctx)

	req := &proto.PageCaptureScreenshot{
		Clip: &proto.PageViewport{
			X:      float64(region.X),
			Y:      float64(region.Y),
			Width:  float64(region.Width),
			Height: float64(region.Height),
			Scale:  1,
		},
	}
	switch format {
	case "jpeg":
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		req.Quality = &quality
	default:
		req.Format = proto.PageCaptureScreenshotFormatPng
	}

	data, err := p.Screenshot(false, req)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeCapture, "failed to capture screenshot region")
	}
	return data, nil
}

// Close resets the tab and returns it to the pool for the next check.
func (pg *Page) Close() {
	if err := pg.page.Navigate("about:blank"); err != nil {
		slog.Debug("failed to reset page to blank", "error", err)
	}
	pg.session.pagePool.Put(pg.page)
	pg.session.activePages.Add(-1)
	metrics.ActivePages.Dec()
}

// elementPoint resolves a clickable point inside the element, or nil when
// the element has no usable geometry.
func elementPoint(el *rod.Element) *proto.Point {
	shape, err := el.Shape()
	if err != nil || shape == nil {
		return nil
	}
	return shape.OnePointInside()
}

// categorizeError maps low-level failures to typed check errors.
// Context expiry always wins: a deadline hit mid-interaction is reported
// as such, not as whatever operation happened to be in flight.
func categorizeError(err error, code, message string) *models.CheckError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCheckError(models.ErrCodeDeadline, "operation timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewCheckError(models.ErrCodeDeadline, "operation cancelled", err)
	default:
		return models.NewCheckError(code, message, err)
	}
}
