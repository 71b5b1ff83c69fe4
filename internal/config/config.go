// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	I18n        I18nConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ReportsBucket   string
	ReportsDir      string
}

type PaymentConfig struct {
	Provider             string
	Currency             string
	RazorpayKeyID        string
	RazorpayKeySecret    string
	StripeSecretKey      string
	StripePublishableKey string
	PlatformFeePercent   string
	PlatformOwnerID      uuid.UUID
	GatewayTimeout       int // in seconds
	ReceiptNodeID        int64
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	Version  string
}

// RateLimitConfig sets per-client request budgets. Zero disables a limit.
type RateLimitConfig struct {
	GeneralPerSecond int
	PaymentPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "inkwell"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ReportsBucket:   getEnv("AWS_REPORTS_BUCKET", "inkwell-ledger-reports"),
			ReportsDir:      getEnv("REPORTS_DIR", "./reports"),
		},
		Payment: PaymentConfig{
			Provider:             strings.ToLower(getEnv("PAYMENT_PROVIDER", ProviderRazorpay)),
			Currency:             strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),
			RazorpayKeyID:        getEnv("RAZORPAY_KEY_ID", ""),
			RazorpayKeySecret:    getEnv("RAZORPAY_KEY_SECRET", ""),
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			PlatformFeePercent:   getEnv("PLATFORM_FEE_PERCENT", "10"),
			PlatformOwnerID:      getEnvAsUUID("PLATFORM_OWNER_ID", uuid.Nil),
			GatewayTimeout:       getEnvAsInt("PAYMENT_GATEWAY_TIMEOUT", 10),
			ReceiptNodeID:        int64(getEnvAsInt("PAYMENT_RECEIPT_NODE_ID", 1)),
		},
		Kafka: KafkaConfig{
			Brokers:  getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:    getEnv("KAFKA_PAYMENTS_TOPIC", "payments.events"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "inkwell-payments"),
			Version:  getEnv("KAFKA_VERSION", "3.6.0"),
		},
		RateLimit: RateLimitConfig{
			GeneralPerSecond: getEnvAsInt("RATE_LIMIT_GENERAL_PER_SECOND", 10),
			PaymentPerMinute: getEnvAsInt("RATE_LIMIT_PAYMENT_PER_MINUTE", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if _, err := c.Payment.DefaultFeePercent(); err != nil {
		return err
	}

	if c.Payment.GatewayTimeout <= 0 {
		return fmt.Errorf("PAYMENT_GATEWAY_TIMEOUT must be positive")
	}

	if c.Payment.ReceiptNodeID < 0 || c.Payment.ReceiptNodeID > 1023 {
		return fmt.Errorf("PAYMENT_RECEIPT_NODE_ID must be between 0 and 1023")
	}

	switch c.Payment.Provider {
	case ProviderRazorpay:
		if c.Environment == "production" && (c.Payment.RazorpayKeyID == "" || c.Payment.RazorpayKeySecret == "") {
			return fmt.Errorf("razorpay key id and secret are required in production")
		}
	case ProviderStripe:
		if c.Environment == "production" && (c.Payment.StripeSecretKey == "" || c.Payment.StripePublishableKey == "") {
			return fmt.Errorf("stripe secret and publishable keys are required in production")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}

	return nil
}

// DefaultFeePercent parses the configured platform fee, used when no
// platform_fee_percent setting has been stored yet.
func (p PaymentConfig) DefaultFeePercent() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(p.PlatformFeePercent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid PLATFORM_FEE_PERCENT %q: %w", p.PlatformFeePercent, err)
	}
	if fee.IsNegative() || fee.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100, got %s", fee)
	}
	return fee, nil
}

func (p PaymentConfig) GatewayTimeoutDuration() time.Duration {
	return time.Duration(p.GatewayTimeout) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvAsUUID(key string, defaultValue uuid.UUID) uuid.UUID {
	if value := os.Getenv(key); value != "" {
		if id, err := uuid.Parse(value); err == nil {
			return id
		}
	}
	return defaultValue
}
