package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/app"
	"github.com/boddenberg/workshop-registration-go/internal/config"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Float64("certificate_fee", cfg.CertificateFee),
		zap.Int("charge_due_days", cfg.ChargeDueDays),
		zap.Bool("webhook_ack_unmatched", cfg.WebhookAckUnmatched),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "workshop-registration")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Application ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	_ = application.Shutdown(ctx)

	logger.Info("server stopped")
}
