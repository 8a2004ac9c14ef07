package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8084, cfg.HTTPPort)
	assert.Equal(t, "mongodb://localhost:27017/accounts", cfg.MongoURL)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenExpiry)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_PORT")
}

func TestValidate_ProductionRequiresStrongSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	// Default dev secrets are too short for production.
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_SECRET")
}

func TestValidate_ProductionSecretsMustDiffer(t *testing.T) {
	secret := strings.Repeat("s", 40)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", secret)
	t.Setenv("REFRESH_TOKEN_SECRET", secret)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidate_ProductionHappyPath(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", strings.Repeat("a", 40))
	t.Setenv("REFRESH_TOKEN_SECRET", strings.Repeat("r", 40))

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate_NonPositiveExpiry(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "-1m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expiries")
}
