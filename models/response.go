package models

// CheckResponse is the response for POST /api/v1/check.
type CheckResponse struct {
	// Success indicates whether the check reached a completion signal.
	Success bool `json:"success"`

	// URL is the target that was submitted to the tool.
	URL string `json:"url"`

	// CompletedBy names the completion signal that ended the wait:
	// "view_details", "data_block", or "complete_text".
	CompletedBy string `json:"completed_by,omitempty"`

	// RecoveryAttempts is how many times a transient tool error was
	// dismissed and the URL resubmitted during this check.
	RecoveryAttempts int `json:"recovery_attempts"`

	// Polls is the number of result observations taken while waiting.
	Polls int `json:"polls"`

	// Screenshot is the captured verdict region, base64-encoded.
	Screenshot string `json:"screenshot,omitempty"`

	// ScreenshotPath is set when the server persists the artifact to disk.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// Target contains the informational preflight of the target URL.
	Target *TargetInfo `json:"target,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TargetInfo is the result of the optional HTTP preflight of the target URL.
// It is informational: an unreachable target or a zero block count never
// blocks the browser check.
type TargetInfo struct {
	Reachable        bool   `json:"reachable"`
	StatusCode       int    `json:"status_code,omitempty"`
	Title            string `json:"title,omitempty"`
	StructuredBlocks int    `json:"structured_blocks"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent opening the tool page.
	NavigationMs int64 `json:"navigation_ms"`

	// WaitMs is the time spent from submission to the completion signal,
	// including any error recovery.
	WaitMs int64 `json:"wait_ms"`

	// CaptureMs is the time spent taking and encoding the screenshot.
	CaptureMs int64 `json:"capture_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
	BrowserPID  int `json:"browser_pid"`
}
