package secrets

import (
	"context"

	"campus-support/backend/pkg/config"
)

// Secret keys looked up in Vault
const (
	KeyOracleAPIKey    = "oracle_api_key"
	KeyJWTSecret       = "jwt_secret"
	KeySlackWebhookURL = "slack_webhook_url"
)

// ResolveConfig overrides sensitive config values with managed secrets,
// keeping the environment value when the manager has none
func ResolveConfig(ctx context.Context, m Manager, cfg *config.Config) {
	cfg.Assistant.OracleAPIKey = m.GetSecretWithDefault(ctx, KeyOracleAPIKey, cfg.Assistant.OracleAPIKey)
	cfg.JWT.Secret = m.GetSecretWithDefault(ctx, KeyJWTSecret, cfg.JWT.Secret)
	cfg.Notify.SlackWebhookURL = m.GetSecretWithDefault(ctx, KeySlackWebhookURL, cfg.Notify.SlackWebhookURL)
}
