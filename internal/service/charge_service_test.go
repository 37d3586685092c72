package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newChargeService(p *mockProvider, m *observability.Metrics) *service.ChargeService {
	return service.NewChargeService(p, service.ChargeConfig{
		Fee:         20.00,
		DueDays:     7,
		Description: "Certificado do workshop",
		Now:         func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	}, m, zap.NewNop())
}

func validCharge() *domain.ChargeRequest {
	return &domain.ChargeRequest{
		ID:        "r1",
		Nome:      "Ana Souza",
		Email:     "ana@example.com",
		CPF:       "529.982.247-25",
		Telefone:  "(11) 98765-4321",
		Municipio: "Campinas",
		CEP:       "13010-000",
	}
}

func TestCreateCharge_NewCustomer(t *testing.T) {
	p := &mockProvider{invoice: "https://sandbox.asaas.com/i/abc"}
	m := observability.NewMetrics()
	svc := newChargeService(p, m)

	resp, err := svc.CreateCharge(context.Background(), validCharge())
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.asaas.com/i/abc", resp.InvoiceURL)

	assert.Equal(t, []string{"FindCustomerByCPF", "CreateCustomer", "CreatePayment"}, p.calls)

	require.Len(t, p.created, 1)
	assert.Equal(t, "r1", p.created[0].ExternalReference)
	assert.Equal(t, "52998224725", p.created[0].CpfCnpj)
	assert.Equal(t, "11987654321", p.created[0].MobilePhone)
	assert.Contains(t, p.created[0].Address, "Campinas")

	require.Len(t, p.payments, 1)
	pay := p.payments[0]
	assert.Equal(t, "cus_new", pay.Customer)
	assert.Equal(t, domain.BillingTypeUndefined, pay.BillingType)
	assert.Equal(t, 20.00, pay.Value)
	assert.Equal(t, "2026-03-17", pay.DueDate)
	assert.Equal(t, "r1", pay.ExternalReference)

	assert.Equal(t, float64(1), m.ChargeCount("created"))
}

func TestCreateCharge_ReusesExistingCustomer(t *testing.T) {
	p := &mockProvider{
		existing: &domain.AsaasCustomer{ID: "cus_old", CpfCnpj: "52998224725"},
		invoice:  "https://sandbox.asaas.com/i/def",
	}
	svc := newChargeService(p, nil)

	resp, err := svc.CreateCharge(context.Background(), validCharge())
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.asaas.com/i/def", resp.InvoiceURL)

	assert.Equal(t, []string{"FindCustomerByCPF", "UpdateCustomer", "CreatePayment"}, p.calls)
	assert.Empty(t, p.created)
	require.Len(t, p.updated, 1)
	assert.Equal(t, "ana@example.com", p.updated[0].Email)
	assert.Equal(t, "cus_old", p.payments[0].Customer)
}

func TestCreateCharge_MissingFieldMakesNoProviderCalls(t *testing.T) {
	fields := []string{"id", "nome", "email", "cpf", "telefone", "municipio", "cep"}
	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			req := validCharge()
			switch field {
			case "id":
				req.ID = ""
			case "nome":
				req.Nome = " "
			case "email":
				req.Email = ""
			case "cpf":
				req.CPF = ""
			case "telefone":
				req.Telefone = ""
			case "municipio":
				req.Municipio = ""
			case "cep":
				req.CEP = ""
			}

			p := &mockProvider{invoice: "x"}
			m := observability.NewMetrics()
			_, err := newChargeService(p, m).CreateCharge(context.Background(), req)

			var ve *domain.ErrValidation
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, field, ve.Field)
			assert.Empty(t, p.calls)
			assert.Equal(t, float64(1), m.ChargeCount("invalid"))
		})
	}
}

func TestCreateCharge_ProviderError(t *testing.T) {
	providerErr := &domain.ErrProvider{Operation: "FindCustomerByCPF", Detail: "invalid access token"}
	p := &mockProvider{err: providerErr}
	m := observability.NewMetrics()

	_, err := newChargeService(p, m).CreateCharge(context.Background(), validCharge())
	require.Error(t, err)
	assert.True(t, errors.Is(err, providerErr))
	assert.Equal(t, []string{"FindCustomerByCPF"}, p.calls)
	assert.Equal(t, float64(1), m.ChargeCount("failed"))
}

func TestCreateCharge_MissingInvoiceURL(t *testing.T) {
	p := &mockProvider{}
	_, err := newChargeService(p, nil).CreateCharge(context.Background(), validCharge())

	var pe *domain.ErrProvider
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "CreatePayment", pe.Operation)
}
