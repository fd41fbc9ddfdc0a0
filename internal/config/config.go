package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envPrefix:"SERVER_"`
	Database      DatabaseConfig      `yaml:"database" envPrefix:"DB_"`
	Store         StoreConfig         `yaml:"store" envPrefix:"STORE_"`
	Log           LogConfig           `yaml:"log" envPrefix:"LOG_"`
	Lifecycle     LifecycleConfig     `yaml:"lifecycle" envPrefix:"LIFECYCLE_"`
	Notifications NotificationsConfig `yaml:"notifications" envPrefix:"NOTIFY_"`
	Security      SecurityConfig      `yaml:"security" envPrefix:"SECURITY_"`
	Scheduler     SchedulerConfig     `yaml:"scheduler" envPrefix:"SCHEDULER_"`
}

// ServerConfig contains gRPC and HTTP listener settings
type ServerConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	HTTPPort int    `yaml:"http_port" env:"HTTP_PORT"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
}

// StoreConfig selects the inventory store backend
type StoreConfig struct {
	Driver      string `yaml:"driver" env:"DRIVER"` // "postgres" or "memory"
	AutoMigrate bool   `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"FORMAT"` // "json" or "text"
}

// LifecycleConfig contains equipment lifecycle policy settings
type LifecycleConfig struct {
	LockWait time.Duration `yaml:"lock_wait" env:"LOCK_WAIT"`
	// UsageReset is applied on maintenance completion: "zero" or "rollover"
	UsageReset          string   `yaml:"usage_reset" env:"USAGE_RESET"`
	UsageThresholds     []uint32 `yaml:"usage_thresholds" env:"USAGE_THRESHOLDS"`
	ServiceIntervalDays int      `yaml:"service_interval_days" env:"SERVICE_INTERVAL_DAYS"`
}

// NotificationsConfig contains notification sink settings
type NotificationsConfig struct {
	QueueSize   int            `yaml:"queue_size" env:"QUEUE_SIZE"`
	Workers     int            `yaml:"workers" env:"WORKERS"`
	SendTimeout time.Duration  `yaml:"send_timeout" env:"SEND_TIMEOUT"`
	Log         bool           `yaml:"log" env:"LOG"`
	Store       bool           `yaml:"store" env:"STORE"`
	Kafka       KafkaConfig    `yaml:"kafka" envPrefix:"KAFKA_"`
	SendGrid    SendGridConfig `yaml:"sendgrid" envPrefix:"SENDGRID_"`
	Firebase    FirebaseConfig `yaml:"firebase" envPrefix:"FIREBASE_"`
}

type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled" env:"ENABLED"`
	Brokers  []string `yaml:"brokers" env:"BROKERS"`
	Topic    string   `yaml:"topic" env:"TOPIC"`
	ClientID string   `yaml:"client_id" env:"CLIENT_ID"`
}

type SendGridConfig struct {
	Enabled           bool              `yaml:"enabled" env:"ENABLED"`
	APIKey            string            `yaml:"api_key" env:"API_KEY"`
	FromEmail         string            `yaml:"from_email" env:"FROM_EMAIL"`
	FromName          string            `yaml:"from_name" env:"FROM_NAME"`
	StaffEmails       map[string]string `yaml:"staff_emails" env:"STAFF_EMAILS"`
	DefaultStaffEmail string            `yaml:"default_staff_email" env:"DEFAULT_STAFF_EMAIL"`
	NotifyRenters     bool              `yaml:"notify_renters" env:"NOTIFY_RENTERS"`
}

type FirebaseConfig struct {
	Enabled         bool   `yaml:"enabled" env:"ENABLED"`
	ProjectID       string `yaml:"project_id" env:"PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
	TopicPrefix     string `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
}

// SecurityConfig contains staff token settings
type SecurityConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	NotifyOverdueRentals string `yaml:"notify_overdue_rentals" env:"NOTIFY_OVERDUE_RENTALS"`
	LogCenterSummaries   string `yaml:"log_center_summaries" env:"LOG_CENTER_SUMMARIES"`
}

// Load reads configuration from a YAML file, then applies environment overrides.
// An empty path skips the file and reads the environment only.
func Load(configPath string) (*Config, error) {
	if shouldLoadDotenv() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var cfg Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables if present
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func shouldLoadDotenv() bool {
	return os.Getenv("APP_ENV") == "local"
}

// Validate fills defaults and checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port == 0 {
		c.Server.Port = 50051
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	// Store validation
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	if c.Store.Driver == "" {
		c.Store.Driver = "postgres"
	}
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Lifecycle defaults
	if c.Lifecycle.LockWait <= 0 {
		c.Lifecycle.LockWait = 2 * time.Second
	}
	c.Lifecycle.UsageReset = strings.ToLower(c.Lifecycle.UsageReset)
	if c.Lifecycle.UsageReset == "" {
		c.Lifecycle.UsageReset = "zero"
	}
	if c.Lifecycle.UsageReset != "zero" && c.Lifecycle.UsageReset != "rollover" {
		return fmt.Errorf("unknown usage reset policy: %q", c.Lifecycle.UsageReset)
	}
	if len(c.Lifecycle.UsageThresholds) == 0 {
		c.Lifecycle.UsageThresholds = []uint32{80, 100}
	}
	for _, p := range c.Lifecycle.UsageThresholds {
		if p == 0 {
			return fmt.Errorf("usage thresholds must be positive percentages")
		}
	}
	if c.Lifecycle.ServiceIntervalDays < 0 {
		return fmt.Errorf("invalid service interval: %d days", c.Lifecycle.ServiceIntervalDays)
	}

	// Notification validation
	if c.Notifications.Kafka.Enabled {
		if len(c.Notifications.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required")
		}
		if c.Notifications.Kafka.Topic == "" {
			c.Notifications.Kafka.Topic = "equipment-events"
		}
		if c.Notifications.Kafka.ClientID == "" {
			c.Notifications.Kafka.ClientID = "divecenter-backend"
		}
	}
	if c.Notifications.SendGrid.Enabled {
		if c.Notifications.SendGrid.APIKey == "" {
			return fmt.Errorf("SendGrid API key is required")
		}
		if c.Notifications.SendGrid.FromEmail == "" {
			return fmt.Errorf("SendGrid from address is required")
		}
	}
	if c.Notifications.Firebase.Enabled && c.Notifications.Firebase.ProjectID == "" {
		return fmt.Errorf("firebase project id is required")
	}

	// Security validation
	if c.Security.Enabled {
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
	}

	// Scheduler defaults
	if c.Scheduler.NotifyOverdueRentals == "" {
		c.Scheduler.NotifyOverdueRentals = "0 0 * * * *" // hourly
	}
	if c.Scheduler.LogCenterSummaries == "" {
		c.Scheduler.LogCenterSummaries = "0 0 6 * * *" // 6 AM UTC
	}

	return nil
}

// ServiceInterval returns the configured time between services, zero when unset
func (c *Config) ServiceInterval() time.Duration {
	return time.Duration(c.Lifecycle.ServiceIntervalDays) * 24 * time.Hour
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the dashboard HTTP address, empty when disabled
func (c *Config) GetHTTPAddress() string {
	if c.Server.HTTPPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}
