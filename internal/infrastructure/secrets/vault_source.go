// Package secrets resolves provider API keys and the webhook HMAC key from
// Vault, with an environment-variable fallback for development.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// VaultSource reads KV v2 secrets from Vault. Paths take the form
// "path/to/secret#field".
type VaultSource struct {
	client    *vault.Client
	mountPath string
	log       logger.Logger
}

// NewVaultSource creates a Vault-backed secret source.
func NewVaultSource(cfg *config.VaultConfig, log logger.Logger) (*VaultSource, error) {
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultSource{
		client:    client,
		mountPath: cfg.MountPath,
		log:       log.WithComponent("vault"),
	}, nil
}

// Secret resolves one secret value.
func (s *VaultSource) Secret(ctx context.Context, path string) (string, error) {
	secretPath, field := splitPath(path)

	kv := s.client.KVv2(s.mountPath)
	secret, err := kv.Get(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("reading vault secret %s: %w", secretPath, err)
	}

	value, ok := secret.Data[field].(string)
	if !ok {
		return "", fmt.Errorf("vault secret %s has no string field %q", secretPath, field)
	}
	return value, nil
}

func splitPath(path string) (secretPath, field string) {
	if i := strings.LastIndex(path, "#"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, "value"
}

// ================================================================================
// Environment Fallback
// ================================================================================

// EnvSource resolves secrets from environment variables; the path is the
// variable name. Used when Vault is disabled.
type EnvSource struct{}

// NewEnvSource creates an environment-backed secret source.
func NewEnvSource() *EnvSource { return &EnvSource{} }

// Secret resolves one secret from the environment.
func (s *EnvSource) Secret(_ context.Context, path string) (string, error) {
	if v := os.Getenv(path); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("environment variable %s not set", path)
}

// NewSource picks the Vault source when enabled, falling back to env vars.
func NewSource(cfg *config.VaultConfig, log logger.Logger) (service.SecretSource, error) {
	if cfg.Enabled {
		return NewVaultSource(cfg, log)
	}
	return NewEnvSource(), nil
}
