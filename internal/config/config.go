// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Mail      MailConfig      `mapstructure:"mail"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the key-value backend the entity collections live in:
// "memory", "postgres" or "redis".
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AMQPConfig holds RabbitMQ configuration. An empty URL selects the
// in-memory queue.
type AMQPConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// MailConfig holds the mail transport configuration
type MailConfig struct {
	// Provider is one of "gmail", "resend", "smtp" or "simulated"
	Provider string `mapstructure:"provider"`
	// SimulateUnauthenticatedTestSends lets test sends succeed through the
	// simulated transport when the real provider is not authenticated.
	SimulateUnauthenticatedTestSends bool         `mapstructure:"simulate_unauthenticated_test_sends"`
	SenderAddress                    string       `mapstructure:"sender_address"`
	SenderName                       string       `mapstructure:"sender_name"`
	Gmail                            GmailConfig  `mapstructure:"gmail"`
	Resend                           ResendConfig `mapstructure:"resend"`
	SMTP                             SMTPConfig   `mapstructure:"smtp"`
}

// GmailConfig holds Gmail API OAuth2 credentials
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// ResendConfig holds the Resend API key
type ResendConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// SchedulerConfig holds campaign scheduling settings
type SchedulerConfig struct {
	DefaultDailyLimit int    `mapstructure:"default_daily_limit"`
	Timezone          string `mapstructure:"timezone"`
	// Cron is the robfig/cron expression that triggers due batches
	Cron string `mapstructure:"cron"`
	// RunTrigger turns the cron trigger off for extra worker replicas
	RunTrigger bool `mapstructure:"run_trigger"`
}

// Location resolves the scheduler timezone, falling back to UTC
func (c SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads .env (if present), config.yaml (if present) and COLDMAIL_*
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; real deployments use the process environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("COLDMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Scheduler.DefaultDailyLimit < 1 {
		return nil, fmt.Errorf("scheduler.default_daily_limit must be >= 1, got %d", cfg.Scheduler.DefaultDailyLimit)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.backend", "memory")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "coldmail")
	v.SetDefault("database.user", "coldmail")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "campaign_batches")

	v.SetDefault("mail.provider", "simulated")
	v.SetDefault("mail.simulate_unauthenticated_test_sends", false)
	v.SetDefault("mail.sender_address", "")
	v.SetDefault("mail.sender_name", "")
	v.SetDefault("mail.gmail.client_id", "")
	v.SetDefault("mail.gmail.client_secret", "")
	v.SetDefault("mail.gmail.refresh_token", "")
	v.SetDefault("mail.resend.api_key", "")
	v.SetDefault("mail.smtp.host", "")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")
	v.SetDefault("mail.smtp.skip_tls_verify", false)

	v.SetDefault("scheduler.default_daily_limit", 25)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.cron", "5 0 * * *")
	v.SetDefault("scheduler.run_trigger", true)
}
