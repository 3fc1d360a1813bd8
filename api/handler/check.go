package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ahsanalpha/google-rich-results-automation/cache"
	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
	"github.com/Ahsanalpha/google-rich-results-automation/tester"
)

// Check returns a handler for POST /api/v1/check.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup keyed on URL + capture settings.
//  3. Service.RunCheck → preflight, submit, recover, wait, capture.
//  4. Cache store, return 200.
func Check(svc *tester.Service, cc *cache.Cache, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.CheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.CheckResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.URL, req.OutputFormat, effectiveRegion(cfg, &req))
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Run the check ────────────────────────────────────────
		resp, err := svc.RunCheck(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		// ── 4. Cache store ──────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// effectiveRegion resolves the capture region a request will actually use,
// so cache keys stay stable between requests that rely on defaults.
func effectiveRegion(cfg *config.Config, req *models.CheckRequest) models.Region {
	if req.Region != nil {
		return *req.Region
	}
	return models.Region{
		X:      cfg.Capture.X,
		Y:      cfg.Capture.Y,
		Width:  cfg.Capture.Width,
		Height: cfg.Capture.Height,
	}
}

// respondError maps a CheckError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	checkErr, ok := err.(*models.CheckError)
	if !ok {
		checkErr = models.NewCheckError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(checkErr), models.CheckResponse{
		Success: false,
		Error:   checkErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.CheckError) int {
	switch e.Code {
	case models.ErrCodeDeadline:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeRemoteError, models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodePrecondition:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
