package service

import (
	"context"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var webhookTracer = otel.Tracer("service/webhook")

// Webhook outcomes, also used as metric labels.
const (
	OutcomeIgnored     = "ignored"
	OutcomePaid        = "paid"
	OutcomeAlreadyPaid = "already_paid"
	OutcomeUnmatched   = "unmatched"
	OutcomeFailed      = "failed"
)

var webhookOK = &domain.WebhookAck{Status: "ok"}

// WebhookService reconciles provider payment notifications with the
// registrant store. Redelivered events converge: the write is constant.
type WebhookService struct {
	provider     port.PaymentProvider
	store        port.RegistrantStore
	ackUnmatched bool
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewWebhookService creates the reconciliation service. ackUnmatched makes
// confirmations for unknown CPFs succeed instead of failing.
func NewWebhookService(provider port.PaymentProvider, store port.RegistrantStore, ackUnmatched bool, metrics *observability.Metrics, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		provider:     provider,
		store:        store,
		ackUnmatched: ackUnmatched,
		metrics:      metrics,
		logger:       logger,
	}
}

// ============================================================
// Reconcile: POST /v1/webhooks/asaas
// ============================================================

// Reconcile marks the registrant behind a confirmed payment as paid.
// Events other than payment confirmations are acknowledged untouched.
func (s *WebhookService) Reconcile(ctx context.Context, ev *domain.AsaasWebhookEvent) (*domain.WebhookAck, error) {
	ctx, span := webhookTracer.Start(ctx, "WebhookService.Reconcile")
	defer span.End()

	if ev == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "corpo da requisição ausente"}
	}
	span.SetAttributes(attribute.String("asaas.event", ev.Event))

	if !ev.IsPaymentConfirmation() {
		s.logger.Debug("webhook: event ignored", zap.String("event", ev.Event))
		s.record(ev.Event, OutcomeIgnored)
		return webhookOK, nil
	}

	outcome, err := s.reconcilePayment(ctx, ev)
	s.record(ev.Event, outcome)
	if err != nil {
		return nil, err
	}
	return webhookOK, nil
}

func (s *WebhookService) reconcilePayment(ctx context.Context, ev *domain.AsaasWebhookEvent) (string, error) {
	if ev.Payment == nil || ev.Payment.Customer == "" {
		return OutcomeFailed, &domain.ErrValidation{Field: "payment.customer", Message: "campo obrigatório"}
	}
	customerID := ev.Payment.Customer

	customer, err := s.provider.GetCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error("webhook: provider customer lookup failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return OutcomeFailed, err
	}

	cpf := domain.OnlyDigits(customer.CpfCnpj)
	if cpf == "" {
		s.logger.Warn("webhook: provider customer has no document", zap.String("customer_id", customerID))
		return OutcomeFailed, &domain.ErrReconciliation{
			CustomerID: customerID,
			Message:    "cliente sem CPF/CNPJ no provedor",
		}
	}

	registrant, err := s.store.GetByField(ctx, domain.FieldCPF, cpf)
	if err != nil {
		s.logger.Error("webhook: registrant lookup failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return OutcomeFailed, storeError("get registrant by cpf", err)
	}
	if registrant == nil {
		s.logger.Warn("webhook: no registrant for paid customer",
			zap.String("customer_id", customerID),
			zap.String("cpf", cpf),
			zap.String("payment_id", ev.Payment.ID),
		)
		if s.ackUnmatched {
			return OutcomeUnmatched, nil
		}
		return OutcomeUnmatched, &domain.ErrNotFound{Resource: "registrant", ID: cpf}
	}

	current := registrant.StatusPagamento.OrDefault()
	if current == domain.PaymentPaid {
		s.logger.Info("webhook: registrant already paid",
			zap.String("registrant_id", registrant.ID),
			zap.String("event", ev.Event),
		)
		return OutcomeAlreadyPaid, nil
	}
	if !current.CanTransitionTo(domain.PaymentPaid) {
		return OutcomeFailed, &domain.ErrReconciliation{
			CustomerID: customerID,
			Message:    "status de pagamento desconhecido: " + string(current),
		}
	}

	err = s.store.UpdateByID(ctx, registrant.ID, map[string]any{
		domain.FieldStatusPagamento: domain.PaymentPaid,
		domain.FieldQuerCertificado: true,
	})
	if err != nil {
		s.logger.Error("webhook: failed to mark registrant paid",
			zap.String("registrant_id", registrant.ID),
			zap.Error(err),
		)
		return OutcomeFailed, storeError("mark registrant paid", err)
	}

	s.logger.Info("webhook: registrant marked paid",
		zap.String("registrant_id", registrant.ID),
		zap.String("customer_id", customerID),
		zap.String("event", ev.Event),
	)
	return OutcomePaid, nil
}

func (s *WebhookService) record(event, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrWebhookEvent(event, outcome)
	}
}
