package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Profile match policies
const (
	PolicyIncidentAndEvent = "incident_and_event"
	PolicyEventOnly        = "event_only"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Routing  RoutingConfig
	Email    EmailConfig
	Dispatch DispatchConfig
	Kafka    KafkaConfig
	Retry    RetryConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	AllowedOrigins  []string
	Environment     string
	RateLimit       float64
	RateBurst       int
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string // sqlite, postgres or pgx
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// RoutingConfig contains the settings of filter evaluation and resolution
type RoutingConfig struct {
	TimeZone           string
	Location           *time.Location
	FallbackFilter     string
	FallbackFilterFile string
	SendNotifications  bool
	ProfileMatchPolicy string
}

// EmailConfig contains SMTP configuration shared by the email and SMS media
type EmailConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	From              string
	NoVerify          bool
	SubjectPrefix     string
	SMSGatewayAddress string
}

// DispatchConfig contains delivery worker configuration
type DispatchConfig struct {
	Workers      int
	QueueSize    int
	Timeout      time.Duration
	MaxElapsed   time.Duration
	EnabledMedia []string
}

// KafkaConfig contains the incident event consumer configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	Topic         string
	GroupID       string
	BatchSize     int
	FlushInterval time.Duration
}

// RetryConfig contains the failed delivery retry job configuration
type RetryConfig struct {
	Enabled   bool
	Schedule  string
	BatchSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
			Environment:     getEnv("ENVIRONMENT", "development"),
			RateLimit:       getEnvAsFloat("RATE_LIMIT", 100),
			RateBurst:       getEnvAsInt("RATE_BURST", 200),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "alertroute"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./data.db"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Routing: RoutingConfig{
			TimeZone:           getEnv("TIME_ZONE", "UTC"),
			FallbackFilter:     getEnv("FALLBACK_FILTER", ""),
			FallbackFilterFile: getEnv("FALLBACK_FILTER_FILE", ""),
			SendNotifications:  getEnvAsBool("SEND_NOTIFICATIONS", false),
			ProfileMatchPolicy: getEnv("PROFILE_MATCH_POLICY", PolicyIncidentAndEvent),
		},
		Email: EmailConfig{
			Host:              getEnv("EMAIL_HOST", "localhost"),
			Port:              getEnvAsInt("EMAIL_PORT", 25),
			User:              getEnv("EMAIL_USER", ""),
			Password:          getEnv("EMAIL_PASSWORD", ""),
			From:              getEnv("EMAIL_FROM", "alertroute@localhost"),
			NoVerify:          getEnvAsBool("EMAIL_NO_VERIFY", false),
			SubjectPrefix:     getEnv("NOTIFICATION_SUBJECT_PREFIX", ""),
			SMSGatewayAddress: getEnv("SMS_GATEWAY_ADDRESS", ""),
		},
		Dispatch: DispatchConfig{
			Workers:      getEnvAsInt("DISPATCH_WORKERS", 4),
			QueueSize:    getEnvAsInt("DISPATCH_QUEUE_SIZE", 1000),
			Timeout:      getEnvAsDuration("DISPATCH_TIMEOUT", 10*time.Second),
			MaxElapsed:   getEnvAsDuration("DISPATCH_MAX_ELAPSED", time.Minute),
			EnabledMedia: getEnvAsList("MEDIA_ENABLED", []string{"email", "sms", "slack", "webhook"}),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:       getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:         getEnv("KAFKA_TOPIC", "incident-events"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "alertroute"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 50),
			FlushInterval: getEnvAsDuration("KAFKA_FLUSH_INTERVAL", 2*time.Second),
		},
		Retry: RetryConfig{
			Enabled:   getEnvAsBool("RETRY_ENABLED", true),
			Schedule:  getEnv("RETRY_SCHEDULE", "@every 1m"),
			BatchSize: getEnvAsInt("RETRY_BATCH_SIZE", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration and resolves the time zone
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Routing.ProfileMatchPolicy {
	case PolicyIncidentAndEvent, PolicyEventOnly:
	default:
		return fmt.Errorf("unsupported profile match policy: %s", c.Routing.ProfileMatchPolicy)
	}

	loc, err := time.LoadLocation(c.Routing.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Routing.TimeZone, err)
	}
	c.Routing.Location = loc

	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("DISPATCH_WORKERS must be at least 1")
	}
	if c.Dispatch.QueueSize < 1 {
		return fmt.Errorf("DISPATCH_QUEUE_SIZE must be at least 1")
	}

	return nil
}

// FallbackDocument returns the raw fallback filter, preferring the inline
// value over the file. An empty result means no fallback is configured.
func (r RoutingConfig) FallbackDocument() ([]byte, error) {
	if strings.TrimSpace(r.FallbackFilter) != "" {
		return []byte(r.FallbackFilter), nil
	}
	if r.FallbackFilterFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(r.FallbackFilterFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback filter file: %w", err)
	}
	return data, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
