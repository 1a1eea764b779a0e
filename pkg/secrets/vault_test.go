package secrets

import (
	"context"
	"testing"

	"campus-support/backend/pkg/config"
	"campus-support/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledManagerReadsEnvironment(t *testing.T) {
	t.Setenv("ORACLE_API_KEY", "sk-test")

	m, err := NewVaultManager(VaultConfigFromEnv(false), logger.Discard())
	require.NoError(t, err)

	value, err := m.GetSecret(context.Background(), "oracle.api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)

	_, err = m.GetSecret(context.Background(), "missing_key")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "missing_key", "fallback"))
}

func TestEnabledManagerRequiresAddress(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Enabled: true}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)
}

func TestResolveConfigKeepsExistingValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	m, err := NewVaultManager(VaultConfigFromEnv(false), logger.Discard())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Notify.SlackWebhookURL = "https://hooks.example/keep"
	ResolveConfig(context.Background(), m, cfg)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "https://hooks.example/keep", cfg.Notify.SlackWebhookURL)
}
