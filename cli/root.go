// Package cli implements the richtest command line interface: a one-shot
// check as the root command, plus the API server and version subcommands.
package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/Ahsanalpha/google-rich-results-automation/browser"
	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
	"github.com/Ahsanalpha/google-rich-results-automation/preflight"
	"github.com/Ahsanalpha/google-rich-results-automation/tester"
)

var (
	flagRegionX      int
	flagRegionY      int
	flagRegionWidth  int
	flagRegionHeight int
	flagOutput       string
	flagFormat       string
	flagQuality      int
	flagTimeout      int
	flagRetries      int
	flagRecovery     int
	flagRetryDelay   time.Duration
	flagPollInterval time.Duration
	flagHeadless     bool
	flagProfileDir   string
	flagStealth      bool
	flagPreflight    bool
	flagJSON         bool
	flagDebug        bool
)

var rootCmd = &cobra.Command{
	Use:   "richtest <url>",
	Short: "Run a URL through Google's Rich Results Test",
	Long: `richtest drives the Google Rich Results Test page in a real browser:
it submits the URL, rides out the tool's transient "Something went wrong"
notices, waits for the verdict, and screenshots it.

Exit codes: 0 check completed, 1 check failed, 2 usage or startup error.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCheck(cmd, args))
	},
}

// Execute runs the CLI. Cobra prints usage errors itself.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&flagRegionX, "x", 0, "capture region left edge (CSS px)")
	f.IntVar(&flagRegionY, "y", 0, "capture region top edge (CSS px)")
	f.IntVar(&flagRegionWidth, "width", 1280, "capture region width (CSS px)")
	f.IntVar(&flagRegionHeight, "height", 900, "capture region height (CSS px)")
	f.StringVarP(&flagOutput, "output", "o", "", "screenshot file path (default richtest-<timestamp>.<ext>)")
	f.StringVar(&flagFormat, "format", "", "screenshot format: png or jpeg")
	f.IntVar(&flagQuality, "quality", 0, "jpeg quality 1-100")
	f.IntVar(&flagTimeout, "timeout", 0, "overall check deadline in seconds")
	f.IntVar(&flagRetries, "retries", 0, "navigation retry budget")
	f.IntVar(&flagRecovery, "recovery-attempts", 0, "transient-error recovery budget")
	f.DurationVar(&flagRetryDelay, "retry-delay", 0, "base delay before the first navigation retry")
	f.DurationVar(&flagPollInterval, "poll-interval", 0, "delay between result polls")
	f.BoolVar(&flagHeadless, "headless", true, "run the browser headless")
	f.StringVar(&flagProfileDir, "profile-dir", "", "persistent Chrome profile directory")
	f.BoolVar(&flagStealth, "stealth", false, "enable anti-bot-detection evasions")
	f.BoolVar(&flagPreflight, "preflight", true, "HTTP pre-check of the target before the browser run")
	f.BoolVar(&flagJSON, "json", false, "print the result as JSON on stdout")

	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

func runCheck(cmd *cobra.Command, args []string) int {
	_ = godotenv.Load()

	cfg := config.Load()
	applyCheckFlags(cmd, cfg)
	initLogger(cfg.Log, flagDebug)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 2
	}

	req := &models.CheckRequest{
		URL:          args[0],
		Stealth:      flagStealth,
		Timeout:      flagTimeout,
		OutputFormat: flagFormat,
		Quality:      flagQuality,
	}
	if cmd.Flags().Changed("retries") {
		req.Retries = &flagRetries
	}
	if cmd.Flags().Changed("recovery-attempts") {
		req.MaxRecoveryAttempts = &flagRecovery
	}
	if cmd.Flags().Changed("preflight") {
		req.Preflight = &flagPreflight
	}
	if regionFlagsChanged(cmd) {
		req.Region = &models.Region{
			X:      flagRegionX,
			Y:      flagRegionY,
			Width:  flagRegionWidth,
			Height: flagRegionHeight,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := browser.NewSession(cfg.Browser, cfg.Runner)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		return 2
	}
	defer sess.Close()

	pre := preflight.NewChecker(cfg.Preflight, cfg.Browser.Proxy)
	opener := tester.OpenerFunc(func(ctx context.Context, stealth bool) (tester.Page, error) {
		return sess.OpenPage(ctx, stealth)
	})

	svc, err := tester.NewService(opener, pre, cfg)
	if err != nil {
		slog.Error("failed to initialise checker", "error", err)
		return 2
	}

	resp, err := svc.RunCheck(ctx, req)
	if err != nil {
		printFailure(err)
		return 1
	}

	saveScreenshot(resp, req.OutputFormat)
	printResult(resp)
	return 0
}

// applyCheckFlags folds command-line overrides into the loaded configuration.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = flagHeadless
	}
	if flagProfileDir != "" {
		cfg.Browser.UserDataDir = flagProfileDir
	}
	if cmd.Flags().Changed("retry-delay") {
		cfg.Runner.NavRetryDelay = flagRetryDelay
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.Runner.PollInterval = flagPollInterval
	}
	// The CLI writes the screenshot itself; disable the server-side artifact dir.
	cfg.Capture.OutputDir = ""
}

func regionFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"x", "y", "width", "height"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// saveScreenshot decodes the capture and writes it next to the caller,
// recording the path on the response.
func saveScreenshot(resp *models.CheckResponse, format string) {
	if resp.Screenshot == "" {
		return
	}
	img, err := base64.StdEncoding.DecodeString(resp.Screenshot)
	if err != nil {
		slog.Warn("could not decode screenshot", "error", err)
		return
	}

	path := flagOutput
	if path == "" {
		ext := "png"
		if format == "jpeg" {
			ext = "jpg"
		}
		path = fmt.Sprintf("richtest-%s.%s", time.Now().Format("20060102-150405"), ext)
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		slog.Warn("could not write screenshot", "path", path, "error", err)
		return
	}
	resp.ScreenshotPath = path
}

func printResult(resp *models.CheckResponse) {
	if flagJSON {
		// The file on disk carries the image; keep stdout readable.
		resp.Screenshot = ""
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		return
	}

	fmt.Printf("check complete: %s\n", resp.URL)
	fmt.Printf("  completed by:      %s\n", resp.CompletedBy)
	fmt.Printf("  recovery attempts: %d\n", resp.RecoveryAttempts)
	fmt.Printf("  polls:             %d\n", resp.Polls)
	if resp.Target != nil {
		fmt.Printf("  target:            HTTP %d, %d JSON-LD block(s)\n",
			resp.Target.StatusCode, resp.Target.StructuredBlocks)
	}
	if resp.ScreenshotPath != "" {
		fmt.Printf("  screenshot:        %s\n", resp.ScreenshotPath)
	}
}

func printFailure(err error) {
	checkErr, ok := err.(*models.CheckError)
	if !ok {
		checkErr = models.NewCheckError(models.ErrCodeInternal, err.Error(), err)
	}
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(models.CheckResponse{Success: false, Error: checkErr.ToDetail()})
		return
	}
	slog.Error("check failed", "code", checkErr.Code, "error", checkErr.Message)
}

// initLogger configures slog: human-readable tint output for terminals,
// JSON when configured. Logs go to stderr so --json output stays parseable.
func initLogger(cfg config.LogConfig, debug bool) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	}

	slog.SetDefault(slog.New(handler))
}
