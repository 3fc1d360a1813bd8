package models

// BatchCheckRequest is the payload for POST /api/v1/batch/check.
type BatchCheckRequest struct {
	// URLs is the list of targets to run through the tool. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=50"`

	// Options contains shared check options applied to all URLs.
	Options CheckOptions `json:"options"`

	// WebhookURL, when set, receives a signed batch.completed event once
	// the job reaches a terminal status.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// CheckOptions are the shared settings applied to every URL in a batch.
type CheckOptions struct {
	Region              *Region `json:"region,omitempty"`
	Timeout             int     `json:"timeout,omitempty" binding:"omitempty,min=1,max=300"`
	MaxRecoveryAttempts *int    `json:"max_recovery_attempts,omitempty" binding:"omitempty,min=0,max=10"`
	Retries             *int    `json:"retries,omitempty" binding:"omitempty,min=0,max=10"`
	Stealth             bool    `json:"stealth,omitempty"`
	Preflight           *bool   `json:"preflight,omitempty"`
	OutputFormat        string  `json:"output_format,omitempty" binding:"omitempty,oneof=png jpeg"`
	Quality             int     `json:"quality,omitempty" binding:"omitempty,min=1,max=100"`
}

// BatchCheckResponse is the immediate response for POST /api/v1/batch/check.
type BatchCheckResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Results   []*CheckResponse `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch check operation.
type BatchJob struct {
	ID            string
	Status        string // "processing", "completed", "failed", "partial"
	Total         int
	Completed     int
	Results       []*CheckResponse
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}
