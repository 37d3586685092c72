package domain_test

import (
	"testing"

	"github.com/boddenberg/workshop-registration-go/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.PaymentStatus
		want     bool
	}{
		{domain.PaymentNotRequested, domain.PaymentPending, true},
		{domain.PaymentNotRequested, domain.PaymentPaid, true},
		{domain.PaymentPending, domain.PaymentPaid, true},
		{domain.PaymentPaid, domain.PaymentPaid, true},
		{domain.PaymentPending, domain.PaymentPending, true},
		{domain.PaymentPaid, domain.PaymentPending, false},
		{domain.PaymentPaid, domain.PaymentNotRequested, false},
		{domain.PaymentPending, domain.PaymentNotRequested, false},
		{domain.PaymentPending, domain.PaymentStatus("refunded"), false},
		{domain.PaymentStatus(""), domain.PaymentPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRegistrantSummary(t *testing.T) {
	r := &domain.Registrant{
		ID:              "r1",
		Nome:            "Ana",
		CPF:             "52998224725",
		Email:           "ana@example.com",
		CodigoInscricao: "WKS-AB12C",
		QuerCertificado: true,
		StatusPagamento: domain.PaymentPending,
	}

	s := r.Summary()
	assert.Equal(t, "r1", s.ID)
	assert.Equal(t, "WKS-AB12C", s.CodigoInscricao)
	assert.Equal(t, domain.PaymentPending, s.StatusPagamento)
	assert.True(t, s.QuerCertificado)
}

func TestWebhookEventConfirmation(t *testing.T) {
	assert.True(t, (&domain.AsaasWebhookEvent{Event: domain.EventPaymentConfirmed}).IsPaymentConfirmation())
	assert.True(t, (&domain.AsaasWebhookEvent{Event: domain.EventPaymentReceived}).IsPaymentConfirmation())
	assert.False(t, (&domain.AsaasWebhookEvent{Event: "PAYMENT_CREATED"}).IsPaymentConfirmation())
}
