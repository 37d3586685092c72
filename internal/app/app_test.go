package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/app"
	"github.com/boddenberg/workshop-registration-go/internal/config"
	"github.com/boddenberg/workshop-registration-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func baseConfig() *config.Config {
	cfg := config.Load()
	cfg.SupabaseURL = ""
	cfg.SMTP.Host = ""
	cfg.EmailDisabled = true
	return cfg
}

func TestNewWithoutStore(t *testing.T) {
	a, err := app.New(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/registrants/lookup?cpf=52998224725", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewWithSupabase(t *testing.T) {
	cfg := baseConfig()
	cfg.SupabaseURL = "http://127.0.0.1:1"
	cfg.SupabaseAnonKey = "anon"

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/registrants", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewRejectsBadBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreBackend = "mongo"
	_, err := app.New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)

	cfg.StoreBackend = config.StorePostgres
	cfg.DatabaseURL = ""
	_, err = app.New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewFailsFastWithoutSMTP(t *testing.T) {
	cfg := baseConfig()
	cfg.EmailDisabled = false

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	var cfgErr *domain.ErrConfiguration
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SMTP_HOST", cfgErr.Setting)

	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.From = ""
	_, err = app.New(context.Background(), cfg, zap.NewNop())
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SMTP_FROM", cfgErr.Setting)
}

func TestNewWithSMTP(t *testing.T) {
	cfg := baseConfig()
	cfg.EmailDisabled = false
	cfg.SMTP.Host = "127.0.0.1"
	cfg.SMTP.Port = 2525
	cfg.SMTP.From = "noreply@example.com"
	cfg.EmailSyncTimeout = time.Second

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, a.Shutdown(context.Background()))
}
