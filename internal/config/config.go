package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Email    EmailConfig    `mapstructure:"email"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds HTTP server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the Redis connection used for operator sessions.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds session and operator bootstrap settings.
type AuthConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// FlashKey signs flash-message cookies.
	FlashKey string `mapstructure:"flash_key"`
	// OperatorUsername and OperatorPassword seed the first operator account.
	OperatorUsername string `mapstructure:"operator_username"`
	OperatorPassword string `mapstructure:"operator_password"`
	// LoginAttemptsLimit is the number of failed logins allowed per
	// username within LoginLockoutDuration.
	LoginAttemptsLimit   int           `mapstructure:"login_attempts_limit"`
	LoginLockoutDuration time.Duration `mapstructure:"login_lockout_duration"`
}

// EmailConfig selects and configures the outbound email transport.
type EmailConfig struct {
	// Provider is one of "postmark", "sendgrid", "smtp", "stdout", "file".
	Provider     string        `mapstructure:"provider"`
	Sender       string        `mapstructure:"sender"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SMTPAddr     string        `mapstructure:"smtp_addr"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
}

// DeliveryConfig holds delivery worker settings.
type DeliveryConfig struct {
	Workers         int           `mapstructure:"workers"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RatePerSecond caps outbound sends per worker process; 0 disables the cap.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	// RetryTransient keeps a task queued after a transient transport error
	// instead of discarding it after the first attempt.
	RetryTransient bool `mapstructure:"retry_transient"`
	// EmbeddedWorker runs the worker pool inside the API server process.
	EmbeddedWorker bool `mapstructure:"embedded_worker"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// setDefaults registers the values used when neither the config file nor
// the environment provides one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.base_url", "http://127.0.0.1:8000")
	v.SetDefault("api.read_timeout", 10*time.Second)
	v.SetDefault("api.write_timeout", 10*time.Second)

	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.login_attempts_limit", 5)
	v.SetDefault("auth.login_lockout_duration", 15*time.Minute)

	v.SetDefault("email.provider", "stdout")
	v.SetDefault("email.timeout", 10*time.Second)

	v.SetDefault("delivery.workers", 1)
	v.SetDefault("delivery.poll_interval", time.Second)
	v.SetDefault("delivery.send_timeout", 10*time.Second)
	v.SetDefault("delivery.shutdown_timeout", 30*time.Second)
	v.SetDefault("delivery.rate_per_second", 0)
	v.SetDefault("delivery.retry_transient", false)
	v.SetDefault("delivery.embedded_worker", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix NEWSLETTER_ override file values.
// For example, NEWSLETTER_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("NEWSLETTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects settings that cannot work together. Each delivery
// worker holds one pooled connection for as long as it owns a task, so
// the pool needs at least one connection beyond the workers for
// everything else sharing it.
func (c *Config) validate() error {
	if c.Database.PoolMax > 0 && c.Delivery.Workers >= int(c.Database.PoolMax) {
		return fmt.Errorf("delivery.workers (%d) must be less than database.pool_max (%d)",
			c.Delivery.Workers, c.Database.PoolMax)
	}
	return nil
}
