// internal/router/router.go
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/handlers"
	"github.com/javajoker/inkwell-backend/internal/middleware"
	"github.com/javajoker/inkwell-backend/internal/services"
)

func Initialize(db *gorm.DB, cfg *config.Config, paymentService *services.PaymentService) *gin.Engine {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	if cfg.RateLimit.GeneralPerSecond > 0 {
		v1.Use(middleware.GeneralRateLimit(cfg.RateLimit.GeneralPerSecond))
	}
	{
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())

		// Order creation and verification share one budget per buyer.
		writes := payments.Group("")
		if cfg.RateLimit.PaymentPerMinute > 0 {
			writes.Use(middleware.PaymentRateLimit(cfg.RateLimit.PaymentPerMinute))
		}
		writes.POST("/order", paymentHandler.CreateOrder)
		writes.POST("/verify", paymentHandler.VerifyPayment)

		payments.GET("/history", paymentHandler.GetHistory)
		payments.GET("/earnings", paymentHandler.GetEarnings)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept-Language", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-Total-Count", "X-Total-Pages", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		// Browsers reject credentialed wildcard responses.
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
