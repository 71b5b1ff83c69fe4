// internal/config/database.go
package config

import (
	"fmt"

	"gorm.io/gorm/logger"
)

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC application_name=inkwell-payments",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

func (d *DatabaseConfig) GormLogLevel() logger.LogLevel {
	switch d.LogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
