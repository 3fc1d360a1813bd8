package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ahsanalpha/google-rich-results-automation/api/handler"
	"github.com/Ahsanalpha/google-rich-results-automation/api/middleware"
	"github.com/Ahsanalpha/google-rich-results-automation/browser"
	"github.com/Ahsanalpha/google-rich-results-automation/cache"
	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/tester"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics endpoints are intentionally outside auth so monitoring
// probes always work.
func NewRouter(svc *tester.Service, sess *browser.Session, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Prometheus scrape endpoint.
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(sess, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Synchronous check
	protected.POST("/check", handler.Check(svc, cc, cfg))

	// Batch
	protected.POST("/batch/check", handler.PostBatch(svc, cfg))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
