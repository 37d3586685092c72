// Command lambda serves the registration API from AWS Lambda behind API
// Gateway (REST, payload v1).
package main

import (
	"context"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/app"
	"github.com/boddenberg/workshop-registration-go/internal/config"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/zap"
)

// emailTimeout bounds the inline confirmation send. The execution
// environment is frozen after each response, so background sends would stall.
const emailTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	if cfg.EmailSyncTimeout <= 0 {
		cfg.EmailSyncTimeout = emailTimeout
	}

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "workshop-registration-lambda")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}

	logger.Info("lambda handler ready", zap.String("store_backend", cfg.StoreBackend))
	lambda.Start(httpadapter.New(application.Handler).ProxyWithContext)
}
