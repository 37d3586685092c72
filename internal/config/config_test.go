package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.StoreSupabase, cfg.StoreBackend)
	assert.Equal(t, 20.00, cfg.CertificateFee)
	assert.Equal(t, 7, cfg.ChargeDueDays)
	assert.True(t, cfg.WebhookAckUnmatched)
	assert.Equal(t, "https://api-sandbox.asaas.com/v3", cfg.Asaas.SandboxURL)
	assert.Equal(t, "https://api.asaas.com/v3", cfg.Asaas.ProductionURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CERTIFICATE_FEE", "35.50")
	t.Setenv("CHARGE_DUE_DAYS", "3")
	t.Setenv("WEBHOOK_ACK_UNMATCHED", "false")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("JWT_ACCESS_TTL", "30m")
	t.Setenv("ASAAS_API_KEY_PRODUCTION", "prod-key")

	cfg := config.Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 35.50, cfg.CertificateFee)
	assert.Equal(t, 3, cfg.ChargeDueDays)
	assert.False(t, cfg.WebhookAckUnmatched)
	assert.Equal(t, config.StorePostgres, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, "prod-key", cfg.Asaas.ProductionKey)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHARGE_DUE_DAYS", "seven")
	t.Setenv("CERTIFICATE_FEE", "free")

	cfg := config.Load()

	assert.Equal(t, 7, cfg.ChargeDueDays)
	assert.Equal(t, 20.00, cfg.CertificateFee)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SMTP_HOST=smtp.from-file\nCHARGE_DESCRIPTION=\"from file\"\n"), 0o600))

	t.Setenv("SMTP_HOST", "smtp.from-env")
	t.Setenv("CHARGE_DESCRIPTION", "")
	os.Unsetenv("CHARGE_DESCRIPTION")

	require.NoError(t, config.LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("CHARGE_DESCRIPTION") })

	assert.Equal(t, "smtp.from-env", os.Getenv("SMTP_HOST"))
	assert.Equal(t, "from file", os.Getenv("CHARGE_DESCRIPTION"))
}

func TestLoadRejectsNonPositiveAttemptWindow(t *testing.T) {
	for _, v := range []string{"0s", "-5m"} {
		t.Setenv("LOGIN_ATTEMPT_WINDOW", v)
		assert.Equal(t, 15*time.Minute, config.Load().LoginAttemptWindow, v)
	}
}

func TestUsesDefaultJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.True(t, config.Load().UsesDefaultJWTSecret())

	t.Setenv("JWT_SECRET", "a-real-secret")
	assert.False(t, config.Load().UsesDefaultJWTSecret())
}

func TestLoadEmailSettings(t *testing.T) {
	cfg := config.Load()
	assert.False(t, cfg.EmailDisabled)
	assert.Zero(t, cfg.EmailSyncTimeout)

	t.Setenv("EMAIL_DISABLED", "true")
	t.Setenv("EMAIL_SYNC_TIMEOUT", "8s")
	cfg = config.Load()
	assert.True(t, cfg.EmailDisabled)
	assert.Equal(t, 8*time.Second, cfg.EmailSyncTimeout)
}
