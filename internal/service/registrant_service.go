package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var registrantTracer = otel.Tracer("service/registrant")

const (
	codePrefix   = "WKS-"
	codeLength   = 5
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 5
)

// GenerateRegistrationCode returns WKS- followed by five random [A-Z0-9].
func GenerateRegistrationCode() (string, error) {
	var sb strings.Builder
	sb.WriteString(codePrefix)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate registration code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// RegistrantService handles public sign-up, certificate opt-in and lookup.
type RegistrantService struct {
	store    port.RegistrantStore
	notifier port.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger

	// NewCode is replaceable in tests.
	NewCode func() (string, error)
}

// NewRegistrantService creates the intake service.
func NewRegistrantService(store port.RegistrantStore, notifier port.Notifier, metrics *observability.Metrics, logger *zap.Logger) *RegistrantService {
	return &RegistrantService{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		NewCode:  GenerateRegistrationCode,
	}
}

// ============================================================
// Register: POST /v1/registrants
// ============================================================

// Register validates and stores a new registrant, then queues the
// confirmation email. A failed email never fails the registration.
func (s *RegistrantService) Register(ctx context.Context, req *domain.RegistrationRequest) (*domain.Registrant, error) {
	ctx, span := registrantTracer.Start(ctx, "RegistrantService.Register")
	defer span.End()

	r, err := buildRegistrant(req)
	if err != nil {
		s.record("invalid")
		return nil, err
	}

	var stored *domain.Registrant
	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code, err := s.NewCode()
		if err != nil {
			return nil, err
		}
		r.CodigoInscricao = code

		stored, err = s.store.Insert(ctx, r)
		if err == nil {
			break
		}

		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) && conflict.Field == domain.FieldCodigoInscricao && attempt < codeAttempts {
			s.logger.Debug("registration code collision, retrying",
				zap.String("code", code),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if errors.As(err, &conflict) {
			s.logger.Info("registration rejected: duplicate", zap.String("field", conflict.Field))
			s.record("duplicate")
			return nil, err
		}
		s.logger.Error("registration insert failed", zap.Error(err))
		s.record("failed")
		return nil, storeError("insert registrant", err)
	}

	span.SetAttributes(attribute.String("registrant.id", stored.ID))
	s.logger.Info("registrant created",
		zap.String("registrant_id", stored.ID),
		zap.String("code", stored.CodigoInscricao),
	)
	s.record("created")

	if s.notifier != nil {
		s.notifier.NotifyRegistration(ctx, stored)
	}
	return stored, nil
}

func buildRegistrant(req *domain.RegistrationRequest) (*domain.Registrant, error) {
	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "corpo da requisição ausente"}
	}

	trimmed := domain.RegistrationRequest{
		Nome:          strings.TrimSpace(req.Nome),
		Cargo:         strings.TrimSpace(req.Cargo),
		CPF:           strings.TrimSpace(req.CPF),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Telefone:      strings.TrimSpace(req.Telefone),
		Empresa:       strings.TrimSpace(req.Empresa),
		Municipio:     strings.TrimSpace(req.Municipio),
		CEP:           strings.TrimSpace(req.CEP),
		ParticipaDia1: req.ParticipaDia1,
		ParticipaDia2: req.ParticipaDia2,
	}

	required := []struct{ field, value string }{
		{"nome", trimmed.Nome},
		{"cargo", trimmed.Cargo},
		{"cpf", trimmed.CPF},
		{"email", trimmed.Email},
		{"telefone", trimmed.Telefone},
		{"empresa", trimmed.Empresa},
		{"municipio", trimmed.Municipio},
		{"cep", trimmed.CEP},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &domain.ErrValidation{Field: r.field, Message: "campo obrigatório"}
		}
	}

	if !domain.ValidCPF(trimmed.CPF) {
		return nil, &domain.ErrValidation{Field: "cpf", Message: "CPF inválido"}
	}
	if !domain.ValidEmail(trimmed.Email) {
		return nil, &domain.ErrValidation{Field: "email", Message: "e-mail inválido"}
	}
	phone, err := domain.NormalizePhone(trimmed.Telefone)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "telefone", Message: "telefone inválido"}
	}
	cep, ok := domain.NormalizeCEP(trimmed.CEP)
	if !ok {
		return nil, &domain.ErrValidation{Field: "cep", Message: "CEP deve ter 8 dígitos"}
	}
	if !trimmed.ParticipaDia1 && !trimmed.ParticipaDia2 {
		return nil, &domain.ErrValidation{Field: "participa_dia1", Message: "selecione ao menos um dia"}
	}

	return &domain.Registrant{
		ID:              uuid.NewString(),
		Nome:            trimmed.Nome,
		Cargo:           trimmed.Cargo,
		CPF:             domain.OnlyDigits(trimmed.CPF),
		Email:           trimmed.Email,
		Telefone:        phone,
		Empresa:         trimmed.Empresa,
		Municipio:       trimmed.Municipio,
		CEP:             cep,
		ParticipaDia1:   trimmed.ParticipaDia1,
		ParticipaDia2:   trimmed.ParticipaDia2,
		StatusPagamento: domain.PaymentNotRequested,
	}, nil
}

// ============================================================
// OptInCertificate: POST /v1/registrants/{id}/certificate
// ============================================================

// OptInCertificate records that the registrant wants a certificate and
// moves payment to pending. Paid registrants are left untouched.
func (s *RegistrantService) OptInCertificate(ctx context.Context, id string) (*domain.Registrant, error) {
	ctx, span := registrantTracer.Start(ctx, "RegistrantService.OptInCertificate")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.id", id))

	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get registrant", err)
	}
	if r == nil || r.IsDeleted {
		return nil, &domain.ErrNotFound{Resource: "registrant", ID: id}
	}

	current := r.StatusPagamento.OrDefault()
	if current == domain.PaymentPaid {
		return r, nil
	}
	if !current.CanTransitionTo(domain.PaymentPending) {
		return nil, &domain.ErrValidation{Field: domain.FieldStatusPagamento, Message: "transição de status inválida"}
	}

	fields := map[string]any{
		domain.FieldQuerCertificado: true,
		domain.FieldStatusPagamento: domain.PaymentPending,
	}
	if err := s.store.UpdateByID(ctx, id, fields); err != nil {
		return nil, storeError("opt in certificate", err)
	}

	r.QuerCertificado = true
	r.StatusPagamento = domain.PaymentPending
	s.logger.Info("registrant opted in for certificate", zap.String("registrant_id", id))
	return r, nil
}

// ============================================================
// Lookup: GET /v1/registrants/lookup?cpf=
// ============================================================

// Lookup returns the public summary of the registrant with cpf.
func (s *RegistrantService) Lookup(ctx context.Context, cpf string) (*domain.RegistrantSummary, error) {
	ctx, span := registrantTracer.Start(ctx, "RegistrantService.Lookup")
	defer span.End()

	digits := domain.OnlyDigits(cpf)
	if !domain.ValidCPF(digits) {
		return nil, &domain.ErrValidation{Field: "cpf", Message: "CPF inválido"}
	}

	r, err := s.store.GetByField(ctx, domain.FieldCPF, digits)
	if err != nil {
		return nil, storeError("lookup registrant", err)
	}
	if r == nil || r.IsDeleted {
		return nil, &domain.ErrNotFound{Resource: "registrant", ID: domain.FormatCPF(digits)}
	}
	return r.Summary(), nil
}

func (s *RegistrantService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrRegistration(outcome)
	}
}
