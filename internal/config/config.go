// Package config defines the typed configuration surface for the riskpulse
// service and its viper-backed loader.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/riskpulse/pkg/constants"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Models     ModelsConfig     `mapstructure:"models"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"`  // minutes
	MaxConnIdleTime int    `mapstructure:"max_conn_idle_time"` // minutes
}

// DSN builds the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	EventsTopic  string        `mapstructure:"events_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
}

// ProviderConfig configures one external risk-data provider.
type ProviderConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimitRPS  float64       `mapstructure:"rate_limit_rps"`
	APIKeySecret  string        `mapstructure:"api_key_secret"` // secret path or env key
	MaxRetries    int           `mapstructure:"max_retries"`
}

type ProvidersConfig struct {
	Financial    ProviderConfig `mapstructure:"financial"`
	Sanctions    ProviderConfig `mapstructure:"sanctions"`
	AdverseMedia ProviderConfig `mapstructure:"adverse_media"`
}

// ForProvider returns the configuration for the named provider.
func (c *ProvidersConfig) ForProvider(id constants.ProviderID) ProviderConfig {
	switch id {
	case constants.ProviderFinancial:
		return c.Financial
	case constants.ProviderSanctions:
		return c.Sanctions
	case constants.ProviderAdverseMedia:
		return c.AdverseMedia
	}
	return ProviderConfig{}
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
}

type AggregatorConfig struct {
	GlobalDeadline time.Duration `mapstructure:"global_deadline"`
	Concurrency    int           `mapstructure:"concurrency"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	LocalCacheTTL  time.Duration `mapstructure:"local_cache_ttl"`
}

type ModelsConfig struct {
	StoragePath  string            `mapstructure:"storage_path"`
	VersionPins  map[string]string `mapstructure:"version_pins"`
	ByteBudget   int64             `mapstructure:"byte_budget"`
	ShortWeight  float64           `mapstructure:"short_weight"`
	LongWeight   float64           `mapstructure:"long_weight"`
	WatchStorage bool              `mapstructure:"watch_storage"`
}

type WebhookConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	SecretPath     string        `mapstructure:"secret_path"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	QueueSize      int           `mapstructure:"queue_size"`
}

type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	BurstSize         int `mapstructure:"burst_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

type MonitoringConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive")
	}
	if c.Aggregator.GlobalDeadline <= 0 {
		return fmt.Errorf("aggregator.global_deadline must be positive")
	}
	if w := c.Models.ShortWeight + c.Models.LongWeight; w <= 0 {
		return fmt.Errorf("models combiner weights must sum to a positive value, got %f", w)
	}
	if c.Auth.Enabled && c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key required when auth is enabled")
	}
	return nil
}
