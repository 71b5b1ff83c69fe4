// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/database"
	"github.com/javajoker/inkwell-backend/internal/i18n"
	"github.com/javajoker/inkwell-backend/internal/metrics"
	"github.com/javajoker/inkwell-backend/internal/repository"
	"github.com/javajoker/inkwell-backend/internal/router"
	"github.com/javajoker/inkwell-backend/internal/services"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.ConfigureLogging()

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	metrics.Register()

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	if err := database.SeedInitialData(db, cfg.Payment); err != nil {
		logrus.WithError(err).Fatal("Failed to seed initial data")
	}

	paymentService, notifier, err := buildPaymentService(cfg, repository.NewStore(db))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize payment service")
	}
	defer notifier.Close()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.Initialize(db, cfg, paymentService)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"provider": cfg.Payment.Provider,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func buildPaymentService(cfg *config.Config, store *repository.Store) (*services.PaymentService, services.Notifier, error) {
	defaultFee, err := cfg.Payment.DefaultFeePercent()
	if err != nil {
		return nil, nil, err
	}

	gateway, err := services.NewPaymentGateway(cfg.Payment)
	if err != nil {
		return nil, nil, err
	}

	receipts, err := services.NewReceiptGenerator(cfg.Payment.ReceiptNodeID)
	if err != nil {
		return nil, nil, err
	}

	notifier, err := services.NewNotifier(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}

	catalog := services.NewPostCatalog(store)
	paymentService := services.NewPaymentService(services.PaymentDeps{
		Store:    store,
		Catalog:  catalog,
		Gateway:  gateway,
		Settings: services.NewSettingsService(store, defaultFee),
		Notifier: notifier,
		Receipts: receipts,
		Config:   cfg.Payment,
	})
	return paymentService, notifier, nil
}
