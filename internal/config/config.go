package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// Driver "memory" runs against the in-process store and ignores the rest.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres" or "memory"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SendGridConfig contains SendGrid API settings. Templates maps an event kind
// to a dynamic template id; kinds without a template are sent as plain text.
type SendGridConfig struct {
	APIKey    string            `yaml:"api_key"`
	FromEmail string            `yaml:"from_email"`
	FromName  string            `yaml:"from_name"`
	Templates map[string]string `yaml:"templates"`
}

// KafkaConfig contains the notification topic settings
type KafkaConfig struct {
	Brokers             []string `yaml:"brokers"`
	Topic               string   `yaml:"topic"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// RedisConfig contains the connection used by the distributed sweep lock
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// NotifyConfig contains notification delivery settings
type NotifyConfig struct {
	Transport  string `yaml:"transport"` // "smtp", "sendgrid", "kafka" or "log"
	AdminEmail string `yaml:"admin_email"`
	Workers    int    `yaml:"workers"`
	QueueSize  int    `yaml:"queue_size"`
	MaxRetries int    `yaml:"max_retries"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	LifecycleSweep string `yaml:"lifecycle_sweep"`
	HealthPort     int    `yaml:"health_port"`
}

// SweeperConfig contains lifecycle sweep settings
type SweeperConfig struct {
	Workers            int  `yaml:"workers"`
	CallTimeoutSeconds int  `yaml:"call_timeout_seconds"`
	LockTTLSeconds     int  `yaml:"lock_ttl_seconds"`
	DistributedLock    bool `yaml:"distributed_lock"`
}

func (s SweeperConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutSeconds) * time.Second
}

func (s SweeperConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSeconds) * time.Second
}

func (k KafkaConfig) WriteTimeout() time.Duration {
	return time.Duration(k.WriteTimeoutSeconds) * time.Second
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// SMTP
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.SMTP.Password = val
	}
	if val := os.Getenv("SMTP_FROM"); val != "" {
		c.SMTP.From = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Kafka
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("KAFKA_TOPIC"); val != "" {
		c.Kafka.Topic = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Notify
	if val := os.Getenv("NOTIFY_TRANSPORT"); val != "" {
		c.Notify.Transport = val
	}
	if val := os.Getenv("NOTIFY_ADMIN_EMAIL"); val != "" {
		c.Notify.AdminEmail = val
	}

	// Scheduler
	if val := os.Getenv("LIFECYCLE_SWEEP_CRON"); val != "" {
		c.Scheduler.LifecycleSweep = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
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
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Notify validation
	if c.Notify.AdminEmail == "" {
		return fmt.Errorf("notify admin email is required")
	}
	if c.Notify.Transport == "" {
		c.Notify.Transport = "smtp"
	}
	switch c.Notify.Transport {
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
		}
	case "sendgrid":
		if c.SendGrid.APIKey == "" {
			return fmt.Errorf("SendGrid API key is required")
		}
		if c.SendGrid.FromEmail == "" {
			return fmt.Errorf("SendGrid from email is required")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required")
		}
	case "log":
	default:
		return fmt.Errorf("unknown notify transport: %s", c.Notify.Transport)
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 100
	}
	if c.Notify.MaxRetries <= 0 {
		c.Notify.MaxRetries = 3
	}

	// Kafka defaults
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "lifecycle-notifications"
	}
	if c.Kafka.WriteTimeoutSeconds == 0 {
		c.Kafka.WriteTimeoutSeconds = 10
	}

	// Redis validation
	if c.Sweeper.DistributedLock && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required for the distributed sweep lock")
	}

	// Scheduler defaults
	if c.Scheduler.LifecycleSweep == "" {
		c.Scheduler.LifecycleSweep = "0 0 6 * * *" // Daily at 6 AM UTC
	}
	if c.Scheduler.HealthPort == 0 {
		c.Scheduler.HealthPort = 9091
	}

	// Sweeper defaults
	if c.Sweeper.Workers <= 0 {
		c.Sweeper.Workers = 4
	}
	if c.Sweeper.CallTimeoutSeconds <= 0 {
		c.Sweeper.CallTimeoutSeconds = 10
	}
	if c.Sweeper.LockTTLSeconds <= 0 {
		c.Sweeper.LockTTLSeconds = 900
	}

	return nil
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

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHealthAddress returns the cronjob gRPC health server address
func (c *Config) GetHealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Scheduler.HealthPort)
}
