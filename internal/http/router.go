// Package httpapi wires the HTTP transport (Gin) to the ingestion service,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, structured logging, panic recovery, metrics,
// compression, authentication, rate limiting, CORS, and security headers.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. Logger: structured access logs (API key never logged)
//  4. Recovery: panics to JSON 500 after the logger
//  5. Body size limit
//  6. Gzip compression
//  7. Metrics
//  8. CORS and security headers
//
// Authentication and rate limiting apply only to the ingestion routes;
// /health and /metrics stay open for probes and scrapers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/BattermanZ/Gastropath/internal/cloudinary"
	"github.com/BattermanZ/Gastropath/internal/config"
	"github.com/BattermanZ/Gastropath/internal/gmaps"
	"github.com/BattermanZ/Gastropath/internal/http/handlers"
	"github.com/BattermanZ/Gastropath/internal/http/middleware"
	"github.com/BattermanZ/Gastropath/internal/notion"
	"github.com/BattermanZ/Gastropath/internal/places"
	"github.com/BattermanZ/Gastropath/internal/services"
	"github.com/BattermanZ/Gastropath/internal/yelp"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine, constructing the provider clients and the ingestion service
// from cfg. db carries the ingestion journal and may be nil to disable it.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB; the only payload is a URL)
	r.Use(limitBody(64 << 10))

	// 6) Compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS and security headers
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", middleware.HeaderAPIKey},
			ExposeHeaders:   []string{"X-Request-ID", "Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderAPIKey},
			ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "server is running"})
	})

	// Dependency injection: provider clients ← config
	callTimeout := cfg.Pipeline.CallTimeout
	ingestSvc := services.NewIngestionService(
		gmaps.New(callTimeout),
		places.New(cfg.Google.APIKey, callTimeout),
		yelp.New(cfg.Yelp.APIKey, callTimeout),
		cloudinary.New(cloudinary.Credentials{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
		}, callTimeout),
		notion.New(cfg.Notion.APIKey, cfg.Notion.DatabaseID, callTimeout),
		db,
		cfg.Pipeline,
	)

	var journal handlers.JournalReader
	if db != nil {
		journal = &services.JournalService{DB: db}
	}
	h := handlers.New(ingestSvc, journal)

	// Authenticated, rate-limited surface
	auth := middleware.APIKeyAuth(cfg.APIKey)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())

	r.POST("/add_restaurant", auth, rl.Handler(), h.AddRestaurant)

	api := r.Group("/api/v1", auth, rl.Handler())
	{
		api.GET("/ingestions", h.ListIngestions)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
