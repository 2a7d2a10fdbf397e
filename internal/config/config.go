package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Butonix/localhub/internal/notifications"
)

// Config is the server configuration, read from the environment.
// Call godotenv.Load before Load to pick up a .env file.
type Config struct {
	Environment string
	Port        string
	BaseURL     string

	LogLevel string
	LogFile  string

	DBDriver string
	DBDSN    string
	DBDebug  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UnreadTTL     time.Duration

	JWTSecret  []byte
	SessionTTL time.Duration

	AWSRegion     string
	EmailFrom     string
	EmailFromName string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	KafkaBrokers string
	KafkaTopic   string

	OTLPEndpoint string
	ServiceName  string

	DeliveryWorkers     int
	DeliveryBuffer      int
	DeliveryMaxAttempts int

	PageSize    int
	GlobalVerbs []string
	EmailVerbs  []string
	CORSOrigins []string
}

// Load reads the configuration from environment variables
// REQUIRED environment variables:
// - JWT_SECRET: signing key for session tokens
// - DATABASE_URL: postgres DSN, or a file path when DB_DRIVER=sqlite
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8787"),
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		DBDriver:        getEnv("DB_DRIVER", "postgres"),
		DBDSN:           os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       []byte(os.Getenv("JWT_SECRET")),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		EmailFrom:       os.Getenv("EMAIL_FROM"),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "localhub"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubscriber: os.Getenv("VAPID_SUBSCRIBER"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "notification.created"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", "localhub"),
		GlobalVerbs:     getList("NOTIFICATION_GLOBAL_VERBS", notifications.DefaultGlobalVerbs),
		EmailVerbs:      getList("NOTIFICATION_EMAIL_VERBS", nil),
		CORSOrigins:     getList("CORS_ORIGINS", []string{"*"}),
	}

	var err error
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.UnreadTTL, err = getDuration("UNREAD_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DeliveryWorkers, err = getInt("DELIVERY_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.DeliveryBuffer, err = getInt("DELIVERY_BUFFER", 1000); err != nil {
		return nil, err
	}
	if cfg.DeliveryMaxAttempts, err = getInt("DELIVERY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = getInt("NOTIFICATIONS_PAGE_SIZE", 20); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and combinations
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	if c.DeliveryWorkers < 1 {
		return fmt.Errorf("DELIVERY_WORKERS must be at least 1")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("NOTIFICATIONS_PAGE_SIZE must be between 1 and 100")
	}
	return nil
}

// EmailEnabled reports whether SES delivery is configured
func (c *Config) EmailEnabled() bool { return c.EmailFrom != "" }

// PushEnabled reports whether web push is configured
func (c *Config) PushEnabled() bool { return c.VAPIDPrivateKey != "" }

// EventsEnabled reports whether Kafka publishing is configured
func (c *Config) EventsEnabled() bool { return c.KafkaBrokers != "" }

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool { return c.Environment == "production" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
