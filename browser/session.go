// Package browser drives the Rich Results Test page through a real
// Chromium instance. It implements the capability surface the tester core
// consumes: observation, humanlike input submission, best-effort control
// activation, and region capture.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/metrics"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
)

// Session manages the global browser lifecycle and the page pool.
// It is safe for concurrent use; each check borrows one page exclusively.
type Session struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	runnerCfg   config.RunnerConfig
	activePages atomic.Int32
	startTime   time.Time
}

// NewSession launches the browser and initialises the reusable page pool.
func NewSession(browserCfg config.BrowserConfig, runnerCfg config.RunnerConfig) (*Session, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}
	// The profile is explicit configuration, never an ambient default:
	// a persistent dir keeps Google's consent choices between runs.
	if browserCfg.UserDataDir != "" {
		l = l.UserDataDir(browserCfg.UserDataDir)
	}
	if browserCfg.WindowWidth > 0 && browserCfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"),
			fmt.Sprintf("%d,%d", browserCfg.WindowWidth, browserCfg.WindowHeight))
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCheckError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewCheckError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &Session{
		browser:    b,
		pagePool:   pool,
		browserCfg: browserCfg,
		runnerCfg:  runnerCfg,
		startTime:  time.Now(),
	}, nil
}

// OpenPage borrows a page from the pool for one check's exclusive use.
// Stealth evasions and the forced Accept-Language header are installed
// before any navigation so they apply to the whole check.
func (s *Session) OpenPage(ctx context.Context, useStealth bool) (*Page, error) {
	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewCheckError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			err,
		)
	}
	s.activePages.Add(1)
	metrics.ActivePages.Inc()

	if useStealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// The classifier matches English signal text; force the locale so
	// Google renders it regardless of the host machine's language.
	headerErr := proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}.Call(page)
	if headerErr != nil {
		slog.Warn("could not set Accept-Language header", "error", headerErr)
	}

	return &Page{page: page, session: s, cfg: s.runnerCfg}, nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Session) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.browserCfg.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Session) Close() {
	slog.Info("browser session shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("browser session shutting down: closing browser")
	s.browser.MustClose()
	slog.Info("browser session shutdown complete")
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
