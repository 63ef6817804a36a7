package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/riskpulse/pkg/constants"
)

// LoadConfig loads configuration from defaults, an optional config file, and
// RISKPULSE_-prefixed environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/riskpulse/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RISKPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "riskpulse")
	v.SetDefault("database.database", "riskpulse")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 60)
	v.SetDefault("database.max_conn_idle_time", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "riskpulse.assessments")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "1s")
	v.SetDefault("kafka.required_acks", -1)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.mount_path", "secret")

	for _, p := range constants.AllProviders {
		prefix := "providers." + string(p)
		v.SetDefault(prefix+".timeout", constants.DefaultProviderTimeout)
		v.SetDefault(prefix+".rate_limit_rps", float64(constants.DefaultProviderRateLimit))
		v.SetDefault(prefix+".max_retries", constants.DefaultProviderRetries)
	}

	v.SetDefault("breaker.failure_threshold", constants.DefaultFailureThreshold)
	v.SetDefault("breaker.cooldown_period", constants.DefaultCooldownPeriod)

	v.SetDefault("aggregator.global_deadline", constants.DefaultAggregationDeadline)
	v.SetDefault("aggregator.concurrency", constants.DefaultAggregationConcurrency)
	v.SetDefault("aggregator.cache_ttl", constants.DefaultProviderCacheTTL)
	v.SetDefault("aggregator.local_cache_ttl", constants.DefaultLocalCacheTTL)

	v.SetDefault("models.storage_path", "./models")
	v.SetDefault("models.byte_budget", constants.DefaultRegistryByteBudget)
	v.SetDefault("models.short_weight", constants.DefaultShortWeight)
	v.SetDefault("models.long_weight", constants.DefaultLongWeight)
	v.SetDefault("models.watch_storage", true)

	v.SetDefault("webhook.max_attempts", constants.DefaultWebhookMaxAttempts)
	v.SetDefault("webhook.initial_backoff", constants.DefaultWebhookInitialBackoff)
	v.SetDefault("webhook.max_backoff", constants.DefaultWebhookMaxBackoff)
	v.SetDefault("webhook.queue_size", 256)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.issuer", "riskpulse")

	v.SetDefault("rate_limit.requests_per_minute", constants.DefaultRateLimitPerMinute)
	v.SetDefault("rate_limit.burst_size", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", constants.ServiceName)

	v.SetDefault("monitoring.pprof_enabled", false)
}
