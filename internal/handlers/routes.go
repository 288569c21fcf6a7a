package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qaforum/engagement/internal/middleware"
)

// RouterOptions configures the HTTP engine around the handlers
type RouterOptions struct {
	ServiceName string
	// CORSOrigins empty or ["*"] allows every origin
	CORSOrigins []string
	// Tracing enables the otelgin middleware
	Tracing bool
	// Health reports dependency health for /health; nil is always healthy
	Health func() error

	ReadLimit   middleware.RateLimitConfig
	IngestLimit middleware.RateLimitConfig
}

// DefaultRouterOptions returns permissive CORS, no tracing and the
// default rate limits
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		ServiceName: "engagement",
		ReadLimit:   middleware.DefaultRateLimitConfig(),
		IngestLimit: middleware.IngestRateLimitConfig(),
	}
}

// NewRouter builds the gin engine serving the engagement API
func NewRouter(h *Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if opts.Tracing {
		r.Use(middleware.TracingMiddleware(opts.ServiceName))
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 || (len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID", "X-User-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		var detail string
		if opts.Health != nil {
			if err := opts.Health(); err != nil {
				status, code, detail = "degraded", http.StatusServiceUnavailable, err.Error()
			}
		}
		body := gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   opts.ServiceName,
		}
		if detail != "" {
			body["error"] = detail
		}
		c.JSON(code, body)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/events", middleware.NewRateLimiter(opts.IngestLimit), h.RecordEvent)

		read := api.Group("", middleware.NewRateLimiter(opts.ReadLimit))
		read.GET("/events/aggregate", h.AggregateEvents)
		read.GET("/targets/:type/:id/metrics", h.TargetMetrics)
		read.GET("/targets/:type/top", h.TopTargets)
		read.GET("/targets/:type/live", h.LiveTargets)
		read.GET("/trending/:type", h.GetTrending)
		read.GET("/feed", h.GetFeed)
		read.GET("/feed/ctr", h.GetFeedCTR)
		read.GET("/users/:id/activity", h.GetUserActivity)
		read.GET("/users/:id/profile", h.GetUserProfile)
	}

	return r
}
