package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nahidhasan98/commit-notifier/internal/validation"
)

// Sink types
const (
	SinkDiscord  = "discord"
	SinkWhatsApp = "whatsapp"
)

// Config holds the application configuration
type Config struct {
	// Commit feed configuration
	Feed FeedConfig

	// Outbound chat sink configuration
	Sink SinkConfig

	// Commit ledger configuration
	Ledger LedgerConfig

	// Notification text configuration
	Notify NotifyConfig

	// WhatsApp configuration, used when Sink.Type is "whatsapp"
	WhatsApp WhatsAppConfig

	// Database configuration for the WhatsApp session store
	Database DatabaseConfig

	// Logging configuration
	Log LogConfig

	// Admin HTTP server configuration
	Server ServerConfig

	// Security configuration
	Security SecurityConfig
}

// FeedConfig holds commit feed configuration
type FeedConfig struct {
	BaseURL      string        `validate:"required,url"`
	Repository   string        `validate:"required"`
	FilesBaseURL string        `validate:"required,url"`
	PollInterval time.Duration `validate:"min=1s"`
	HTTPTimeout  time.Duration `validate:"min=0s"`
}

// SinkConfig holds webhook sink configuration
type SinkConfig struct {
	Type              string `validate:"oneof=discord whatsapp"`
	DiscordWebhookURL string `validate:"required_if=Type discord"`
}

// LedgerConfig holds commit ledger configuration
type LedgerConfig struct {
	Path              string `validate:"required"`
	QuarantineCorrupt bool
	DiagnosticLogPath string `validate:"required"`
}

// NotifyConfig holds the identifiers and assets used when formatting
type NotifyConfig struct {
	OwnerID          string
	RoleID           string
	BrandingIconURL  string
	DefaultAvatarURL string
}

// WhatsAppConfig holds WhatsApp-specific configuration
type WhatsAppConfig struct {
	Recipient  string // JID that receives commit notifications
	Owner      string // JID that receives operator alerts
	LogLevel   string
	DeviceName string // Custom device name that appears in WhatsApp linked devices
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string `validate:"oneof=json text"` // "json" or "text"
}

// ServerConfig holds admin server configuration
type ServerConfig struct {
	Enabled         bool
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SecurityConfig holds security-specific configuration
type SecurityConfig struct {
	// API Keys - sent by clients of the admin server
	APIKeys []string

	// Requests per minute accepted from one client address
	RateLimitPerMinute int `validate:"min=1"`
}

var validate = validator.New()

// Load loads configuration from environment variables, reading envFile
// first if it exists.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// Optional file
	_ = godotenv.Load(envFile)

	cfg := &Config{
		Feed: FeedConfig{
			BaseURL:      strings.TrimRight(getEnv("FEED_BASE_URL", "https://commits.facepunch.com"), "/"),
			Repository:   getEnv("FEED_REPOSITORY", ""),
			FilesBaseURL: strings.TrimRight(getEnv("FILES_BASE_URL", "https://files.facepunch.com"), "/"),
			PollInterval: getEnvAsDuration("POLL_INTERVAL", 60*time.Second),
			HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", 0),
		},
		Sink: SinkConfig{
			Type:              strings.ToLower(getEnv("SINK_TYPE", SinkDiscord)),
			DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		Ledger: LedgerConfig{
			Path:              getEnv("LEDGER_PATH", "commits.json"),
			QuarantineCorrupt: getEnvAsBool("LEDGER_QUARANTINE_CORRUPT", false),
			DiagnosticLogPath: getEnv("DIAGNOSTIC_LOG_PATH", "debug.log"),
		},
		Notify: NotifyConfig{
			OwnerID:          getEnv("ALERT_OWNER_ID", ""),
			RoleID:           getEnv("NOTIFY_ROLE_ID", ""),
			BrandingIconURL:  getEnv("BRANDING_ICON_URL", "https://images.squarespace-cdn.com/content/v1/627cb6fa4355783e5e375440/c92dbe6c-2afa-457c-a6b3-e9e8847d4565/rust-logo.png"),
			DefaultAvatarURL: getEnv("DEFAULT_AVATAR_URL", "https://files.facepunch.com/garry/f549bfc2-2a49-4eb8-a701-3efd7ae046ac.png"),
		},
		WhatsApp: WhatsAppConfig{
			Recipient:  getEnv("WHATSAPP_RECIPIENT", ""),
			Owner:      getEnv("WHATSAPP_OWNER", ""),
			LogLevel:   getEnv("WHATSAPP_LOG_LEVEL", "INFO"),
			DeviceName: getEnv("WHATSAPP_DEVICE_NAME", "macOS"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			DSN:    getEnv("DB_DSN", "file:commit-notifier.db?_foreign_keys=on"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Server: ServerConfig{
			Enabled:         getEnvAsBool("SERVER_ENABLED", false),
			Host:            getEnv("SERVER_HOST", ""),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Security: SecurityConfig{
			APIKeys:            getEnvAsSlice("API_KEYS", []string{}),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Sink.Type == SinkDiscord {
		if _, err := url.ParseRequestURI(c.Sink.DiscordWebhookURL); err != nil {
			return fmt.Errorf("invalid discord webhook URL: %w", err)
		}
	}

	if c.Sink.Type == SinkWhatsApp {
		if c.WhatsApp.Recipient == "" {
			return fmt.Errorf("whatsapp recipient is required when SINK_TYPE is whatsapp")
		}
		v := validation.New()
		if !v.IsValidJID(c.WhatsApp.Recipient) {
			return fmt.Errorf("invalid whatsapp recipient JID: %s", c.WhatsApp.Recipient)
		}
		if c.WhatsApp.Owner != "" && !v.IsValidJID(c.WhatsApp.Owner) {
			return fmt.Errorf("invalid whatsapp owner JID: %s", c.WhatsApp.Owner)
		}
		if c.Database.Driver == "" || c.Database.DSN == "" {
			return fmt.Errorf("database driver and DSN are required when SINK_TYPE is whatsapp")
		}
	}

	if c.Server.Enabled {
		if len(c.Security.APIKeys) == 0 {
			return fmt.Errorf("at least one API key is required when the admin server is enabled")
		}

		// Check for default/insecure API keys
		for _, key := range c.Security.APIKeys {
			if key == "default-api-key" || key == "api-key-123" || len(key) < 8 {
				return fmt.Errorf("insecure or default API key detected: '%s'. Please set secure API keys in environment variables", key)
			}
		}
	}

	return nil
}

// Address returns the server address in the format host:port
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Helper functions to get environment variables

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

// getEnvAsDuration accepts Go durations ("90s") and bare milliseconds ("60000")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	values := make([]string, 0)
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	return values
}
