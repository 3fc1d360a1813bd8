package models

// Region is a rectangular area of the page viewport, in CSS pixels.
type Region struct {
	X      int `json:"x" binding:"min=0"`
	Y      int `json:"y" binding:"min=0"`
	Width  int `json:"width" binding:"omitempty,min=1"`
	Height int `json:"height" binding:"omitempty,min=1"`
}

// CheckRequest is the payload for POST /api/v1/check.
type CheckRequest struct {
	// URL is the target page to run through the Rich Results Test. Required.
	URL string `json:"url" binding:"required,url"`

	// Region overrides the configured capture area for the verdict screenshot.
	Region *Region `json:"region,omitempty"`

	// Timeout is the overall deadline in seconds for the entire check
	// (navigation + submission + result wait + capture).
	// Default: 90. Max: 300.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=300"`

	// MaxRecoveryAttempts bounds how many times a transient
	// "Something went wrong" notice is dismissed and the URL resubmitted
	// before the check fails. Nil means the server default (5).
	MaxRecoveryAttempts *int `json:"max_recovery_attempts,omitempty" binding:"omitempty,min=0,max=10"`

	// Retries bounds the navigation and input-wait retry loops.
	// Nil means the server default (3).
	Retries *int `json:"retries,omitempty" binding:"omitempty,min=0,max=10"`

	// Stealth enables anti-bot-detection evasions on the driven page.
	// Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// Preflight controls the informational HTTP pre-check of the target URL
	// (reachability, title, JSON-LD block count). Nil means the server default.
	Preflight *bool `json:"preflight,omitempty"`

	// OutputFormat controls the screenshot encoding.
	// Allowed: "png" (default), "jpeg".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=png jpeg"`

	// Quality is the jpeg quality (1-100). Ignored for png. Default: 90.
	Quality int `json:"quality,omitempty" binding:"omitempty,min=1,max=100"`

	// MaxAge enables cache reuse: a cached result for the same URL and
	// format younger than MaxAge milliseconds is returned without driving
	// the browser. 0 disables caching for this request.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *CheckRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 90
	}
	if r.OutputFormat == "" {
		r.OutputFormat = "png"
	}
	if r.Quality == 0 {
		r.Quality = 90
	}
}
