// Package httpapi wires the HTTP transport (Gin) to the fulfillment service,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, structured logging, panic recovery, metrics,
// CORS, and rate limiting.
//
// The public surface is deliberately tiny: one webhook endpoint plus
// health and metrics. Middleware order: trace everything first, then
// correlate, then log, then recover, so every failure mode is attributable.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/config"
	"github.com/courtside/booking-fulfillment/internal/http/handlers"
	"github.com/courtside/booking-fulfillment/internal/http/middleware"
	"github.com/courtside/booking-fulfillment/internal/services"
)

// maxWebhookBody caps webhook payload size. Stripe events are small; 1 MiB
// leaves generous headroom.
const maxWebhookBody = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, charges services.ChargeRetriever, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limit
	r.Use(limitBody(maxWebhookBody))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	r.Use(rl.Handler())

	// 8) CORS. The webhook is server-to-server, but health/metrics may be
	// polled from dashboards; explicit origins when configured, permissive
	// otherwise.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Stripe-Signature"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Stripe-Signature"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: handler <- service <- db/client
	svc := &services.FulfillmentService{
		DB:                   db,
		Charges:              charges,
		DefaultFeeBps:        cfg.Fees.DefaultBps,
		DefaultFeeFixedCents: cfg.Fees.DefaultFixedCents,
	}
	wh := &handlers.WebhookHandler{
		DB:          db,
		Fulfillment: svc,
		Secret:      cfg.Stripe.WebhookSecret,
		Tolerance:   cfg.Stripe.WebhookTolerance,
	}

	r.POST("/webhooks/stripe", wh.HandleStripeEvent)
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized payloads error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
