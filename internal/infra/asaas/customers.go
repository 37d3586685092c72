package asaas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
)

// ============================================================
// Customers
// ============================================================

// customerResponse decodes a customer body that may also carry errors[].
type customerResponse struct {
	domain.AsaasCustomer
	Errors []domain.AsaasError `json:"errors"`
}

func (r *customerResponse) check(operation string) (*domain.AsaasCustomer, error) {
	if r.ID == "" {
		raw, _ := json.Marshal(domain.AsaasErrorResponse{Errors: r.Errors})
		detail := providerDetail(raw)
		if detail == "" {
			detail = "customer id missing in provider response"
		}
		return nil, &domain.ErrProvider{Operation: operation, Detail: detail}
	}
	c := r.AsaasCustomer
	return &c, nil
}

// FindCustomerByCPF returns the first customer registered under cpf, or nil.
func (c *Client) FindCustomerByCPF(ctx context.Context, cpf string) (*domain.AsaasCustomer, error) {
	var list domain.AsaasCustomerList
	path := "/customers?cpfCnpj=" + url.QueryEscape(cpf)
	if err := c.do(ctx, "FindCustomerByCPF", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	found := list.Data[0]
	return &found, nil
}

// CreateCustomer registers a new customer.
func (c *Client) CreateCustomer(ctx context.Context, in *domain.AsaasCustomer) (*domain.AsaasCustomer, error) {
	var resp customerResponse
	if err := c.do(ctx, "CreateCustomer", http.MethodPost, "/customers", in, &resp); err != nil {
		return nil, err
	}
	return resp.check("CreateCustomer")
}

// UpdateCustomer overwrites contact data of an existing customer.
func (c *Client) UpdateCustomer(ctx context.Context, id string, in *domain.AsaasCustomer) (*domain.AsaasCustomer, error) {
	var resp customerResponse
	path := "/customers/" + url.PathEscape(id)
	if err := c.do(ctx, "UpdateCustomer", http.MethodPost, path, in, &resp); err != nil {
		return nil, err
	}
	return resp.check("UpdateCustomer")
}

// GetCustomer fetches a customer by provider id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.AsaasCustomer, error) {
	var resp customerResponse
	path := "/customers/" + url.PathEscape(id)
	if err := c.do(ctx, "GetCustomer", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.check("GetCustomer")
}
