package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var chargeTracer = otel.Tracer("service/charge")

const dueDateLayout = "2006-01-02"

// ChargeConfig holds the certificate charge parameters.
type ChargeConfig struct {
	Fee         float64
	DueDays     int
	Description string
	// Now is the clock used for due dates; defaults to time.Now.
	Now func() time.Time
}

// ChargeService creates certificate charges at the payment provider.
// It never writes to the registrant store.
type ChargeService struct {
	provider port.PaymentProvider
	cfg      ChargeConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewChargeService creates the charge service.
func NewChargeService(provider port.PaymentProvider, cfg ChargeConfig, metrics *observability.Metrics, logger *zap.Logger) *ChargeService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ChargeService{
		provider: provider,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// CreateCharge: POST /v1/certificates/charge
// ============================================================

// CreateCharge finds or creates the provider customer for req.CPF and opens
// a charge for the certificate fee. Returns the hosted invoice URL.
func (s *ChargeService) CreateCharge(ctx context.Context, req *domain.ChargeRequest) (*domain.ChargeResponse, error) {
	ctx, span := chargeTracer.Start(ctx, "ChargeService.CreateCharge")
	defer span.End()

	if err := validateChargeRequest(req); err != nil {
		s.record("invalid")
		return nil, err
	}
	span.SetAttributes(attribute.String("registrant.id", req.ID))

	cpf := domain.OnlyDigits(req.CPF)
	phone, err := domain.NormalizePhone(req.Telefone)
	if err != nil {
		phone = domain.OnlyDigits(req.Telefone)
	}

	customerID, err := s.resolveCustomer(ctx, req, cpf, phone)
	if err != nil {
		s.fail(req, "resolve customer", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("asaas.customer_id", customerID))

	payment, err := s.provider.CreatePayment(ctx, &domain.AsaasPayment{
		Customer:          customerID,
		BillingType:       domain.BillingTypeUndefined,
		Value:             s.cfg.Fee,
		DueDate:           s.cfg.Now().AddDate(0, 0, s.cfg.DueDays).Format(dueDateLayout),
		Description:       s.cfg.Description,
		ExternalReference: req.ID,
	})
	if err != nil {
		s.fail(req, "create payment", err)
		return nil, err
	}
	if payment.InvoiceURL == "" {
		err := &domain.ErrProvider{Operation: "CreatePayment", Detail: "invoiceUrl missing in provider response"}
		s.fail(req, "create payment", err)
		return nil, err
	}

	s.logger.Info("certificate charge created",
		zap.String("registrant_id", req.ID),
		zap.String("customer_id", customerID),
		zap.String("payment_id", payment.ID),
	)
	s.record("created")

	return &domain.ChargeResponse{InvoiceURL: payment.InvoiceURL}, nil
}

// resolveCustomer reuses the provider customer registered under cpf,
// refreshing its contact data, or creates a new one.
func (s *ChargeService) resolveCustomer(ctx context.Context, req *domain.ChargeRequest, cpf, phone string) (string, error) {
	existing, err := s.provider.FindCustomerByCPF(ctx, cpf)
	if err != nil {
		return "", err
	}

	if existing != nil && existing.ID != "" {
		_, err := s.provider.UpdateCustomer(ctx, existing.ID, &domain.AsaasCustomer{
			Name:        req.Nome,
			Email:       req.Email,
			Phone:       phone,
			MobilePhone: phone,
		})
		if err != nil {
			return "", err
		}
		s.logger.Debug("reusing provider customer",
			zap.String("registrant_id", req.ID),
			zap.String("customer_id", existing.ID),
		)
		return existing.ID, nil
	}

	created, err := s.provider.CreateCustomer(ctx, &domain.AsaasCustomer{
		Name:              req.Nome,
		Email:             req.Email,
		CpfCnpj:           cpf,
		Phone:             phone,
		MobilePhone:       phone,
		Address:           "Endereço não informado - " + req.Municipio,
		PostalCode:        req.CEP,
		ExternalReference: req.ID,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func validateChargeRequest(req *domain.ChargeRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "corpo da requisição ausente"}
	}
	required := []struct{ field, value string }{
		{"id", req.ID},
		{"nome", req.Nome},
		{"email", req.Email},
		{"cpf", req.CPF},
		{"telefone", req.Telefone},
		{"municipio", req.Municipio},
		{"cep", req.CEP},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.ErrValidation{Field: r.field, Message: "campo obrigatório"}
		}
	}
	return nil
}

func (s *ChargeService) fail(req *domain.ChargeRequest, step string, err error) {
	s.logger.Error("certificate charge failed",
		zap.String("registrant_id", req.ID),
		zap.String("step", step),
		zap.Error(err),
	)
	s.record("failed")
}

func (s *ChargeService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrCharge(outcome)
	}
}
