package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskpulse/pkg/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, constants.DefaultFailureThreshold, cfg.Breaker.FailureThreshold)
	assert.Equal(t, constants.DefaultShortWeight, cfg.Models.ShortWeight)
	assert.Equal(t, constants.DefaultLongWeight, cfg.Models.LongWeight)
	assert.False(t, cfg.Auth.Enabled)
	assert.True(t, cfg.Models.WatchStorage)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("RISKPULSE_SERVER_PORT", "9090")
	t.Setenv("RISKPULSE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsInvalidPort(t *testing.T) {
	t.Setenv("RISKPULSE_SERVER_PORT", "70000")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateAuthRequiresSigningKey(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Auth.Enabled = true
	cfg.Auth.SigningKey = ""
	assert.Error(t, cfg.Validate())

	cfg.Auth.SigningKey = "test-signing-key"
	assert.NoError(t, cfg.Validate())
}

func TestProvidersForProvider(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	for _, id := range constants.AllProviders {
		pc := cfg.Providers.ForProvider(id)
		assert.Equal(t, constants.DefaultProviderTimeout, pc.Timeout, "provider %s", id)
		assert.Equal(t, constants.DefaultProviderRetries, pc.MaxRetries, "provider %s", id)
	}

	assert.Zero(t, cfg.Providers.ForProvider("unknown"))
}
