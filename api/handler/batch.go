package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/metrics"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
	"github.com/Ahsanalpha/google-rich-results-automation/tester"
	"github.com/Ahsanalpha/google-rich-results-automation/webhook"
)

// batchStore holds all in-flight and completed batch jobs.
var (
	batchStore sync.Map
	sweepOnce  sync.Once
)

// startBatchSweeper launches the background goroutine that expires batch
// jobs older than the configured retention. Started on the first batch
// submission so the retention comes from live config, not an init default.
func startBatchSweeper(retention time.Duration) {
	sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				cutoff := time.Now().Add(-retention).Unix()
				batchStore.Range(func(key, value any) bool {
					job := value.(*models.BatchJob)
					if job.CreatedAt < cutoff {
						batchStore.Delete(key)
					}
					return true
				})
			}
		}()
	})
}

// PostBatch returns a handler for POST /api/v1/batch/check.
// It validates the request, creates a batch job, and launches goroutines
// to check each URL concurrently.
func PostBatch(svc *tester.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if len(req.URLs) > cfg.Batch.MaxURLs {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "too many URLs per batch",
				},
			})
			return
		}

		startBatchSweeper(cfg.Batch.JobRetention)

		jobID := "batch-" + randomID()
		job := &models.BatchJob{
			ID:            jobID,
			Status:        "processing",
			Total:         len(req.URLs),
			Completed:     0,
			Results:       make([]*models.CheckResponse, len(req.URLs)),
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}
		batchStore.Store(jobID, job)

		// Launch checks in background.
		go runBatch(svc, cfg, job, req)

		c.JSON(http.StatusOK, models.BatchCheckResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(req.URLs),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		job := val.(*models.BatchJob)
		c.JSON(http.StatusOK, models.BatchStatusResponse{
			ID:        job.ID,
			Status:    job.Status,
			Completed: job.Completed,
			Total:     job.Total,
			Results:   job.Results,
		})
	}
}

// runBatch processes all URLs in a batch job with concurrency limited by a
// semaphore sized to the page pool, so batches never starve sync checks.
func runBatch(svc *tester.Service, cfg *config.Config, job *models.BatchJob, req models.BatchCheckRequest) {
	maxConcurrent := cfg.Browser.MaxPages
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var completed atomic.Int32
	var failed atomic.Int32

	for i, rawURL := range req.URLs {
		wg.Add(1)
		go func(idx int, targetURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp := checkOne(svc, targetURL, req.Options)
			job.Results[idx] = resp

			if resp.Success {
				completed.Add(1)
			} else {
				failed.Add(1)
			}
			job.Completed = int(completed.Load()) + int(failed.Load())
		}(i, rawURL)
	}

	wg.Wait()

	failedCount := int(failed.Load())
	completedCount := int(completed.Load())

	switch {
	case failedCount == job.Total:
		job.Status = "failed"
	case failedCount > 0:
		job.Status = "partial"
	default:
		job.Status = "completed"
	}
	job.Completed = completedCount + failedCount
	metrics.BatchJobsTotal.WithLabelValues(job.Status).Inc()

	slog.Info("batch job finished",
		"id", job.ID,
		"status", job.Status,
		"completed", completedCount,
		"failed", failedCount,
		"total", job.Total,
	)

	if job.WebhookURL != "" {
		eventType := "batch.completed"
		if job.Status == "failed" {
			eventType = "batch.failed"
		}
		webhook.DeliverAsync(job.WebhookURL, job.WebhookSecret, &webhook.Event{
			Type:      eventType,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data: models.BatchStatusResponse{
				ID:        job.ID,
				Status:    job.Status,
				Completed: job.Completed,
				Total:     job.Total,
				Results:   job.Results,
			},
		})
	}
}

// checkOne performs a single check for one URL using shared batch options.
func checkOne(svc *tester.Service, targetURL string, opts models.CheckOptions) *models.CheckResponse {
	creq := &models.CheckRequest{
		URL:                 targetURL,
		Region:              opts.Region,
		Timeout:             opts.Timeout,
		MaxRecoveryAttempts: opts.MaxRecoveryAttempts,
		Retries:             opts.Retries,
		Stealth:             opts.Stealth,
		Preflight:           opts.Preflight,
		OutputFormat:        opts.OutputFormat,
		Quality:             opts.Quality,
	}

	resp, err := svc.RunCheck(context.Background(), creq)
	if err != nil {
		checkErr, ok := err.(*models.CheckError)
		if !ok {
			checkErr = models.NewCheckError(models.ErrCodeInternal, err.Error(), err)
		}
		return &models.CheckResponse{
			Success: false,
			URL:     targetURL,
			Error:   checkErr.ToDetail(),
		}
	}
	return resp
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
