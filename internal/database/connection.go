// internal/database/connection.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.GormLogLevel()),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Post{},
		&models.Purchase{},
		&models.Wallet{},
		&models.Transaction{},
		&models.PlatformSetting{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	// Constraint indexes: the ledger is unsafe without them.
	constraints := []string{
		// One live purchase per buyer and item. FAILED rows are kept for audit and
		// do not block a fresh order.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_purchases_buyer_item_live ON purchases(buyer_id, item_id) WHERE status <> 'FAILED'",
	}

	for _, index := range constraints {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("constraint index %q: %w", index, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_purchases_buyer_status ON purchases(buyer_id, status, completed_at)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_wallet_type ON transactions(wallet_id, type, created_at)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData stores the configured platform fee as the initial
// platform_fee_percent setting when none exists yet.
func SeedInitialData(db *gorm.DB, payment config.PaymentConfig) error {
	fee, err := payment.DefaultFeePercent()
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.PlatformSetting{}).
		Where("name = ?", models.SettingPlatformFeePercent).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check settings: %w", err)
	}

	if count > 0 {
		return nil
	}

	setting := &models.PlatformSetting{
		Name:        models.SettingPlatformFeePercent,
		Value:       fee.String(),
		Description: "Percentage of each exclusive-post sale retained by the platform",
	}
	if err := db.Create(setting).Error; err != nil {
		return fmt.Errorf("failed to seed platform fee: %w", err)
	}

	logrus.WithField("platform_fee_percent", fee.String()).Info("Seeded platform fee setting")
	return nil
}

// WithTransaction runs fn inside a database transaction bound to ctx. The
// transaction commits when fn returns nil and rolls back on error or panic.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
