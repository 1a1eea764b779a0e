package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		GRPCPort        string
		Env             string
		Timeout         time.Duration
		ShutdownTimeout time.Duration
	}

	// Database configuration
	Database struct {
		Driver   string // postgres or sqlite
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		Path     string // sqlite file
		MaxConns int
	}

	// JWT configuration
	JWT struct {
		Secret string
		Issuer string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		// ChatLimitPerMinute caps chat turns per client when Redis is available
		ChatLimitPerMinute int
		// EscalateLimitPerHour caps new tickets per client when Redis is available
		EscalateLimitPerHour int
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Assistant holds the text-generation oracle settings
	Assistant struct {
		OracleURL      string
		OracleModel    string
		OracleAPIKey   string
		OracleTimeout  time.Duration
		HistoryLimit   int
		TranscriptSize int
		MaxMessageLen  int
	}

	// Notify holds staff-notification channels
	Notify struct {
		KafkaBrokers    []string
		KafkaTopic      string
		SlackWebhookURL string
		Timeout         time.Duration
	}

	// Redis is optional; an empty URL disables distributed rate limiting
	Redis struct {
		URL      string
		Password string
		DB       int
	}

	// Observability settings
	Observability struct {
		ServiceName   string
		TraceStdout   bool
		OpenAPISchema string
	}

	// Vault controls secret resolution
	Vault struct {
		Enabled bool
	}
}

var (
	instance *Config
	once     sync.Once
)

// New returns the process-wide Config, loading it on first use
func New() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = Load()
	})
	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load builds a fresh Config from the environment without touching the singleton
func Load() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "9094")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "campus_support")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.Path = getEnvString("DB_PATH", "campus_support.db")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

	cfg.JWT.Secret = getEnvString("JWT_SECRET", "")
	cfg.JWT.Issuer = getEnvString("JWT_ISSUER", "campus-support")

	cfg.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.ChatLimitPerMinute = getEnvInt("CHAT_LIMIT_PER_MINUTE", 20)
	cfg.Security.EscalateLimitPerHour = getEnvInt("ESCALATE_LIMIT_PER_HOUR", 10)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Assistant.OracleURL = getEnvString("ORACLE_URL", "https://api.openai.com/v1")
	cfg.Assistant.OracleModel = getEnvString("ORACLE_MODEL", "gpt-4o-mini")
	cfg.Assistant.OracleAPIKey = getEnvString("ORACLE_API_KEY", "")
	cfg.Assistant.OracleTimeout = getEnvDuration("ORACLE_TIMEOUT", 20*time.Second)
	cfg.Assistant.HistoryLimit = getEnvInt("ASSISTANT_HISTORY_LIMIT", 10)
	cfg.Assistant.TranscriptSize = getEnvInt("ESCALATION_TRANSCRIPT_SIZE", 5)
	cfg.Assistant.MaxMessageLen = getEnvInt("ASSISTANT_MAX_MESSAGE_LEN", 4000)

	cfg.Notify.KafkaBrokers = getEnvStringSlice("KAFKA_BROKERS", nil)
	cfg.Notify.KafkaTopic = getEnvString("KAFKA_TOPIC_TICKETS", "support.tickets")
	cfg.Notify.SlackWebhookURL = getEnvString("SLACK_WEBHOOK_URL", "")
	cfg.Notify.Timeout = getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)

	cfg.Redis.URL = getEnvString("REDIS_URL", "")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "campus-support")
	cfg.Observability.TraceStdout = getEnvBool("TRACE_STDOUT", false)
	cfg.Observability.OpenAPISchema = getEnvString("OPENAPI_SCHEMA_PATH", "")

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)

	return cfg
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("config: DB_HOST and DB_NAME are required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: DB_PATH is required for sqlite")
		}
	default:
		return errors.New("config: DB_DRIVER must be postgres or sqlite")
	}
	if c.IsProduction() && c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET is required in production")
	}
	if c.Assistant.OracleTimeout <= 0 {
		return errors.New("config: ORACLE_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
