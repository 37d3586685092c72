package handler

import (
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 2. Inscrições
// ============================================================

func registerHandler(svc *service.RegistrantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/registrants")
		defer span.End()

		var req domain.RegistrationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		reg, err := svc.Register(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, reg)
	}
}

func lookupHandler(svc *service.RegistrantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/registrants/lookup")
		defer span.End()

		summary, err := svc.Lookup(ctx, r.URL.Query().Get("cpf"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func optInCertificateHandler(svc *service.RegistrantService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/registrants/{id}/certificate")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("registrant.id", id))

		reg, err := svc.OptInCertificate(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, reg.Summary())
	}
}
