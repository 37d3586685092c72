// Package app wires configuration, adapters and services into the HTTP
// handler shared by the server and the Lambda entrypoints.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/config"
	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/handler"
	"github.com/boddenberg/workshop-registration-go/internal/infra/asaas"
	"github.com/boddenberg/workshop-registration-go/internal/infra/cache"
	"github.com/boddenberg/workshop-registration-go/internal/infra/mailer"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/infra/postgres"
	"github.com/boddenberg/workshop-registration-go/internal/infra/resilience"
	"github.com/boddenberg/workshop-registration-go/internal/infra/supabase"
	"github.com/boddenberg/workshop-registration-go/internal/port"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"go.uber.org/zap"
)

// App is the assembled application.
type App struct {
	Handler http.Handler
	Metrics *observability.Metrics

	mailer  *mailer.Mailer
	closers []func()
	logger  *zap.Logger
}

// registrantBackend is satisfied by both store adapters.
type registrantBackend interface {
	port.RegistrantStore
	port.AdminStore
}

// New builds every dependency from cfg. Services whose backing store is not
// configured are left out and their routes answer 503.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Metrics: observability.NewMetrics(),
		logger:  logger,
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store ---
	store, err := a.openStore(ctx, cfg, httpClient)
	if err != nil {
		a.close()
		return nil, err
	}

	// --- Payment provider ---
	provider := asaas.NewClient(
		httpClient,
		asaas.Credentials{
			SandboxKey:    cfg.Asaas.SandboxKey,
			ProductionKey: cfg.Asaas.ProductionKey,
			SandboxURL:    cfg.Asaas.SandboxURL,
			ProductionURL: cfg.Asaas.ProductionURL,
		},
		resilience.NewCircuitBreaker("asaas", asaas.IsSuccessful, logger),
		a.Metrics,
		logger,
	)
	if err := provider.Ping(ctx); err != nil {
		logger.Warn("asaas: no API key configured, charges and webhooks will fail", zap.Error(err))
	} else {
		logger.Info("asaas client configured", zap.String("environment", provider.Environment()))
	}

	// --- Email ---
	notifier, err := a.openNotifier(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.UsesDefaultJWTSecret() {
		logger.Warn("auth: JWT_SECRET not set, admin tokens are signed with the development default")
	}

	// --- Services ---
	svc := handler.Services{
		Charge: service.NewChargeService(provider, service.ChargeConfig{
			Fee:         cfg.CertificateFee,
			DueDays:     cfg.ChargeDueDays,
			Description: cfg.ChargeDescription,
		}, a.Metrics, logger),
		WebhookToken: cfg.Asaas.WebhookToken,
	}

	deps := []service.Dependency{{Name: "asaas", Pinger: provider}}
	if store != nil {
		attempts := cache.New[int](cfg.LoginAttemptWindow)
		a.closers = append(a.closers, attempts.Close)

		svc.Webhook = service.NewWebhookService(provider, store, cfg.WebhookAckUnmatched, a.Metrics, logger)
		svc.Registrants = service.NewRegistrantService(store, notifier, a.Metrics, logger)
		svc.Admin = service.NewAdminService(store, logger)
		svc.Auth = service.NewAuthService(store, attempts, cfg.JWTSecret, cfg.JWTAccessTTL, a.Metrics, logger)
		deps = append(deps, service.Dependency{Name: "store", Pinger: store, Critical: true})
	}
	svc.Health = service.NewHealthService(deps, cfg.HTTPTimeout, logger)

	a.Handler = handler.NewRouter(svc, a.Metrics, logger)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, httpClient *http.Client) (registrantBackend, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, int32(cfg.MaxConcurrency), a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if cfg.RunMigrations {
			if err := postgres.Migrate(ctx, pool, a.logger); err != nil {
				return nil, err
			}
		}
		a.logger.Info("using Postgres as registrant store")
		return postgres.NewStore(pool, resilience.NewCircuitBreaker("postgres", postgres.IsSuccessful, a.logger), a.logger), nil

	case config.StoreSupabase:
		if cfg.SupabaseURL == "" {
			a.logger.Warn("supabase: SUPABASE_URL not set, registrant routes unavailable")
			return nil, nil
		}
		a.logger.Info("using Supabase as registrant store", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", supabase.IsSuccessful, a.logger),
			a.Metrics,
			a.logger,
		), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

// openNotifier builds the SMTP mailer. Missing SMTP settings are a
// configuration error unless email is explicitly disabled.
func (a *App) openNotifier(cfg *config.Config) (port.Notifier, error) {
	if cfg.EmailDisabled {
		a.logger.Warn("smtp: EMAIL_DISABLED set, confirmation emails disabled")
		return mailer.Noop{Logger: a.logger}, nil
	}
	if cfg.SMTP.Host == "" {
		return nil, &domain.ErrConfiguration{Setting: "SMTP_HOST", Message: "SMTP host is required (set EMAIL_DISABLED=true to run without email)"}
	}
	if cfg.SMTP.From == "" {
		return nil, &domain.ErrConfiguration{Setting: "SMTP_FROM", Message: "sender address is required"}
	}
	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
	})
	if err != nil {
		return nil, &domain.ErrConfiguration{Setting: "SMTP_HOST", Message: err.Error()}
	}

	var opts []mailer.Option
	if cfg.EmailSyncTimeout > 0 {
		opts = append(opts, mailer.WithSyncDelivery(cfg.EmailSyncTimeout))
	}
	a.mailer = mailer.New(sender, cfg.SMTP.From, cfg.EventName, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}, a.Metrics, a.logger, opts...)
	return a.mailer, nil
}

// Shutdown waits for pending emails and releases pools and caches.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.mailer != nil {
		if err = a.mailer.Wait(ctx); err != nil {
			a.logger.Warn("pending emails not delivered before shutdown", zap.Error(err))
		}
	}
	a.close()
	return err
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// ShutdownTimeout bounds graceful shutdown of the server.
const ShutdownTimeout = 15 * time.Second
