package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Runner    RunnerConfig
	Capture   CaptureConfig
	Preflight PreflightConfig
	Batch     BatchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent checks).
	MaxPages int // default: 3

	// UserDataDir is the Chrome profile directory. Empty means a fresh
	// temporary profile per launch. Point it at a persistent directory to
	// reuse cookies and consent choices between runs.
	UserDataDir string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// WindowWidth and WindowHeight size the browser window. The capture
	// region must fit inside them.
	WindowWidth  int // default: 1440
	WindowHeight int // default: 900

	// Stealth enables anti-bot-detection evasions for all pages unless a
	// request overrides it.
	Stealth bool // default: false
}

// RunnerConfig controls how a check drives the Rich Results Test page.
type RunnerConfig struct {
	// ToolURL is the address of the test tool itself.
	ToolURL string // default: "https://search.google.com/test/rich-results"

	// PollInterval is the delay between result observations while waiting.
	PollInterval time.Duration // default: 1s

	// SettleDelay is the pause after a dismiss-and-resubmit recovery
	// attempt before the page is observed again.
	SettleDelay time.Duration // default: 3s

	// MaxRecoveryAttempts bounds dismiss-and-resubmit cycles for the
	// transient "Something went wrong" notice.
	MaxRecoveryAttempts int // default: 5

	// Timeout is the default overall deadline for one check.
	Timeout time.Duration // default: 90s

	// NavRetries and NavRetryDelay shape the retry loops around tool-page
	// navigation and the input-field appearance wait. The delay before
	// retry k is NavRetryDelay * 2^(k-1).
	NavRetries    int           // default: 3
	NavRetryDelay time.Duration // default: 1s

	// InputSelector locates the URL input field on the tool page.
	InputSelector string

	// SpinnerSelector locates the in-progress indicator.
	SpinnerSelector string

	// DataBlockSelector locates the structured-data block shown with a
	// finished analysis.
	DataBlockSelector string

	// ViewDetailsSelector and ViewDetailsPattern locate the completion
	// affordance by visible text. The pattern is a JS regex in /.../flags
	// form, evaluated in the page.
	ViewDetailsSelector string
	ViewDetailsPattern  string

	// DismissSelector and DismissPattern locate the control that closes
	// the transient error notice. Same JS regex form.
	DismissSelector string
	DismissPattern  string

	// ErrorPattern matches the transient error text in the page's visible
	// text. Go regex.
	ErrorPattern string // default: "(?i)something went wrong"

	// TestingPattern matches the in-progress label in visible text. Go regex.
	TestingPattern string // default: `(?i)\btesting\b`

	// CompleteText is the literal completion marker searched for in
	// visible text.
	CompleteText string // default: "TEST COMPLETE"
}

// CaptureConfig controls the verdict screenshot.
type CaptureConfig struct {
	// Format is "png" or "jpeg".
	Format string // default: "png"

	// Quality is the jpeg quality (1-100). Ignored for png.
	Quality int // default: 90

	// Region is the default viewport area captured after completion.
	X      int // default: 0
	Y      int // default: 0
	Width  int // default: 1280
	Height int // default: 900

	// OutputDir, when set, makes the server persist each screenshot to a
	// timestamped file there and report the path in the response.
	OutputDir string
}

// PreflightConfig controls the informational HTTP pre-check of target URLs.
type PreflightConfig struct {
	Enabled bool          // default: true
	Timeout time.Duration // default: 15s
}

// BatchConfig controls async batch check jobs.
type BatchConfig struct {
	// MaxURLs is the per-job URL cap enforced at submission.
	MaxURLs int // default: 10

	// JobRetention is how long finished jobs stay queryable.
	JobRetention time.Duration // default: 1h
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the check response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 200
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("RICHTEST_HOST", "0.0.0.0"),
			Port: envIntOr("RICHTEST_PORT", 8080),
			Mode: envOr("RICHTEST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("RICHTEST_HEADLESS", true),
			MaxPages:     envIntOr("RICHTEST_MAX_PAGES", 3),
			UserDataDir:  os.Getenv("RICHTEST_PROFILE_DIR"),
			Proxy:        os.Getenv("RICHTEST_PROXY"),
			NoSandbox:    envBoolOr("RICHTEST_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("RICHTEST_BROWSER_BIN"),
			WindowWidth:  envIntOr("RICHTEST_WINDOW_WIDTH", 1440),
			WindowHeight: envIntOr("RICHTEST_WINDOW_HEIGHT", 900),
			Stealth:      envBoolOr("RICHTEST_STEALTH", false),
		},
		Runner: RunnerConfig{
			ToolURL:             envOr("RICHTEST_TOOL_URL", "https://search.google.com/test/rich-results"),
			PollInterval:        envDurationOr("RICHTEST_POLL_INTERVAL", time.Second),
			SettleDelay:         envDurationOr("RICHTEST_SETTLE_DELAY", 3*time.Second),
			MaxRecoveryAttempts: envIntOr("RICHTEST_MAX_RECOVERY_ATTEMPTS", 5),
			Timeout:             envDurationOr("RICHTEST_TIMEOUT", 90*time.Second),
			NavRetries:          envIntOr("RICHTEST_NAV_RETRIES", 3),
			NavRetryDelay:       envDurationOr("RICHTEST_NAV_RETRY_DELAY", time.Second),
			InputSelector:       envOr("RICHTEST_INPUT_SELECTOR", `input[type="url"], input[type="text"]`),
			SpinnerSelector:     envOr("RICHTEST_SPINNER_SELECTOR", `[role="progressbar"]`),
			DataBlockSelector:   envOr("RICHTEST_DATA_BLOCK_SELECTOR", "pre"),
			ViewDetailsSelector: envOr("RICHTEST_VIEW_DETAILS_SELECTOR", "button, a"),
			ViewDetailsPattern:  envOr("RICHTEST_VIEW_DETAILS_PATTERN", "/view details/i"),
			DismissSelector:     envOr("RICHTEST_DISMISS_SELECTOR", "button"),
			DismissPattern:      envOr("RICHTEST_DISMISS_PATTERN", "/dismiss|got it|close/i"),
			ErrorPattern:        envOr("RICHTEST_ERROR_PATTERN", "(?i)something went wrong"),
			TestingPattern:      envOr("RICHTEST_TESTING_PATTERN", `(?i)\btesting\b`),
			CompleteText:        envOr("RICHTEST_COMPLETE_TEXT", "TEST COMPLETE"),
		},
		Capture: CaptureConfig{
			Format:    envOr("RICHTEST_CAPTURE_FORMAT", "png"),
			Quality:   envIntOr("RICHTEST_CAPTURE_QUALITY", 90),
			X:         envIntOr("RICHTEST_CAPTURE_X", 0),
			Y:         envIntOr("RICHTEST_CAPTURE_Y", 0),
			Width:     envIntOr("RICHTEST_CAPTURE_WIDTH", 1280),
			Height:    envIntOr("RICHTEST_CAPTURE_HEIGHT", 900),
			OutputDir: os.Getenv("RICHTEST_OUTPUT_DIR"),
		},
		Preflight: PreflightConfig{
			Enabled: envBoolOr("RICHTEST_PREFLIGHT", true),
			Timeout: envDurationOr("RICHTEST_PREFLIGHT_TIMEOUT", 15*time.Second),
		},
		Batch: BatchConfig{
			MaxURLs:      envIntOr("RICHTEST_BATCH_MAX_URLS", 10),
			JobRetention: envDurationOr("RICHTEST_BATCH_RETENTION", time.Hour),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RICHTEST_AUTH_ENABLED", true),
			APIKeys: envSliceOr("RICHTEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RICHTEST_RATE_RPS", 1.0),
			Burst:             envIntOr("RICHTEST_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("RICHTEST_CACHE_MAX_ENTRIES", 200),
		},
		Log: LogConfig{
			Level:  envOr("RICHTEST_LOG_LEVEL", "info"),
			Format: envOr("RICHTEST_LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the overridable selectors and patterns so a bad value
// fails at startup instead of mid-check. JS-side patterns (/.../flags form)
// are only shape-checked; the browser compiles them.
func (c *Config) Validate() error {
	selectors := map[string]string{
		"RICHTEST_INPUT_SELECTOR":        c.Runner.InputSelector,
		"RICHTEST_SPINNER_SELECTOR":      c.Runner.SpinnerSelector,
		"RICHTEST_DATA_BLOCK_SELECTOR":   c.Runner.DataBlockSelector,
		"RICHTEST_VIEW_DETAILS_SELECTOR": c.Runner.ViewDetailsSelector,
		"RICHTEST_DISMISS_SELECTOR":      c.Runner.DismissSelector,
	}
	for name, sel := range selectors {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("%s: invalid CSS selector %q: %w", name, sel, err)
		}
	}

	patterns := map[string]string{
		"RICHTEST_ERROR_PATTERN":   c.Runner.ErrorPattern,
		"RICHTEST_TESTING_PATTERN": c.Runner.TestingPattern,
	}
	for name, pat := range patterns {
		if _, err := regexp.Compile(pat); err != nil {
			return fmt.Errorf("%s: invalid pattern %q: %w", name, pat, err)
		}
	}

	for _, p := range []struct{ name, val string }{
		{"RICHTEST_VIEW_DETAILS_PATTERN", c.Runner.ViewDetailsPattern},
		{"RICHTEST_DISMISS_PATTERN", c.Runner.DismissPattern},
	} {
		if p.val == "" || !strings.HasPrefix(p.val, "/") {
			return fmt.Errorf("%s: expected /pattern/flags form, got %q", p.name, p.val)
		}
	}

	if c.Capture.Format != "png" && c.Capture.Format != "jpeg" {
		return fmt.Errorf("RICHTEST_CAPTURE_FORMAT: expected png or jpeg, got %q", c.Capture.Format)
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("capture region must have positive width and height")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
