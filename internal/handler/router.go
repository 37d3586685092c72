package handler

import (
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the use cases served over HTTP. A nil service answers
// 503 on its routes.
type Services struct {
	Charge       *service.ChargeService
	Webhook      *service.WebhookService
	Registrants  *service.RegistrantService
	Admin        *service.AdminService
	Auth         *service.AuthService
	Health       *service.HealthService
	WebhookToken string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", webhookTokenHeader},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(svc.Health))
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Certificado: cobrança e webhook
		// =============================================
		r.Options("/certificates/charge", preflightHandler)
		r.Options("/webhooks/asaas", preflightHandler)
		if svc.Charge != nil {
			r.Post("/certificates/charge", chargeHandler(svc.Charge, logger))
		} else {
			r.Post("/certificates/charge", unavailableHandler("charge"))
		}
		if svc.Webhook != nil {
			r.With(WebhookTokenMiddleware(svc.WebhookToken, logger)).
				Post("/webhooks/asaas", asaasWebhookHandler(svc.Webhook, logger))
		} else {
			r.Post("/webhooks/asaas", unavailableHandler("webhook"))
		}

		// =============================================
		// 2. Inscrições (público)
		// =============================================
		r.Route("/registrants", func(r chi.Router) {
			if svc.Registrants == nil {
				r.Handle("/*", unavailableHandler("registrants"))
				r.Handle("/", unavailableHandler("registrants"))
				return
			}
			r.Post("/", registerHandler(svc.Registrants, logger))
			r.Get("/lookup", lookupHandler(svc.Registrants, logger))
			r.Post("/{id}/certificate", optInCertificateHandler(svc.Registrants, logger))
		})

		// =============================================
		// 3. Autenticação
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			if svc.Auth == nil {
				r.Handle("/*", unavailableHandler("auth"))
				return
			}
			r.Post("/login", authLoginHandler(svc.Auth, logger))
		})

		// =============================================
		// 4. Administração (JWT)
		// =============================================
		r.Route("/admin/registrants", func(r chi.Router) {
			if svc.Auth == nil || svc.Admin == nil {
				r.Handle("/*", unavailableHandler("admin"))
				r.Handle("/", unavailableHandler("admin"))
				return
			}
			r.Use(JWTAuthMiddleware(svc.Auth, logger))

			r.Get("/", adminListHandler(svc.Admin, logger))
			r.Get("/stats", adminStatsHandler(svc.Admin, logger))
			r.Get("/export.csv", adminExportHandler(svc.Admin, logger))
			r.Post("/bulk/delete", adminSoftDeleteHandler(svc.Admin, logger))
			r.Post("/bulk/restore", adminRestoreHandler(svc.Admin, logger))
			r.Post("/bulk/purge", adminHardDeleteHandler(svc.Admin, logger))
			r.Post("/bulk/update", adminBulkUpdateHandler(svc.Admin, logger))
			r.Get("/{id}", adminGetHandler(svc.Admin, logger))
			r.Patch("/{id}", adminUpdateHandler(svc.Admin, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler(health *service.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
		status := health.Check(r.Context())
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func unavailableHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, name+" service unavailable: not configured")
	}
}
