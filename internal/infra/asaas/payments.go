package asaas

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
)

// ============================================================
// Payments
// ============================================================

type paymentResponse struct {
	domain.AsaasPayment
	Errors []domain.AsaasError `json:"errors"`
}

// CreatePayment creates a charge. The returned payment always has an id;
// callers check InvoiceURL themselves.
func (c *Client) CreatePayment(ctx context.Context, in *domain.AsaasPayment) (*domain.AsaasPayment, error) {
	var resp paymentResponse
	if err := c.do(ctx, "CreatePayment", http.MethodPost, "/payments", in, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		raw, _ := json.Marshal(domain.AsaasErrorResponse{Errors: resp.Errors})
		detail := providerDetail(raw)
		if detail == "" {
			detail = "payment id missing in provider response"
		}
		return nil, &domain.ErrProvider{Operation: "CreatePayment", Detail: detail}
	}
	p := resp.AsaasPayment
	return &p, nil
}
