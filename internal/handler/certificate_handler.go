package handler

import (
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 1. Certificado: POST /v1/certificates/charge
// ============================================================

func chargeHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/certificates/charge")
		defer span.End()

		var req domain.ChargeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("registrant.id", req.ID))

		resp, err := svc.CreateCharge(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// 1b. Webhook: POST /v1/webhooks/asaas
// ============================================================

func asaasWebhookHandler(svc *service.WebhookService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/asaas")
		defer span.End()

		var ev domain.AsaasWebhookEvent
		if err := decodeJSON(w, r, &ev); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("asaas.event", ev.Event))

		ack, err := svc.Reconcile(ctx, &ev)
		if err != nil {
			handleWebhookError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ack)
	}
}
