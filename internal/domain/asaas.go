package domain

// ============================================================
// Asaas payloads (customers, payments, webhooks)
// ============================================================

// Webhook events that confirm a certificate payment.
const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
)

// BillingTypeUndefined lets the payer choose boleto, Pix or card on the invoice page.
const BillingTypeUndefined = "UNDEFINED"

// ChargeRequest is the body for POST /v1/certificates/charge.
type ChargeRequest struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	Telefone  string `json:"telefone"`
	Municipio string `json:"municipio"`
	CEP       string `json:"cep"`
}

// ChargeResponse is returned by POST /v1/certificates/charge.
type ChargeResponse struct {
	InvoiceURL string `json:"invoiceUrl"`
}

// AsaasCustomer mirrors the customer resource of the Asaas API.
type AsaasCustomer struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	CpfCnpj           string `json:"cpfCnpj,omitempty"`
	Phone             string `json:"phone,omitempty"`
	MobilePhone       string `json:"mobilePhone,omitempty"`
	Address           string `json:"address,omitempty"`
	PostalCode        string `json:"postalCode,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// AsaasCustomerList is the response of GET /customers.
type AsaasCustomerList struct {
	TotalCount int             `json:"totalCount"`
	Data       []AsaasCustomer `json:"data"`
}

// AsaasPayment mirrors the payment (charge) resource of the Asaas API.
type AsaasPayment struct {
	ID                string  `json:"id,omitempty"`
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType,omitempty"`
	Value             float64 `json:"value,omitempty"`
	DueDate           string  `json:"dueDate,omitempty"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
	Status            string  `json:"status,omitempty"`
	InvoiceURL        string  `json:"invoiceUrl,omitempty"`
}

// AsaasWebhookEvent is the notification body posted by Asaas.
type AsaasWebhookEvent struct {
	ID      string        `json:"id,omitempty"`
	Event   string        `json:"event"`
	Payment *AsaasPayment `json:"payment,omitempty"`
}

// IsPaymentConfirmation reports whether the event should mark a registrant as paid.
func (e *AsaasWebhookEvent) IsPaymentConfirmation() bool {
	return e.Event == EventPaymentConfirmed || e.Event == EventPaymentReceived
}

// AsaasErrorResponse is the error envelope returned by Asaas on 4xx.
type AsaasErrorResponse struct {
	Errors []AsaasError `json:"errors"`
}

// AsaasError is a single provider validation error.
type AsaasError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// WebhookAck is the body returned to the provider on success.
type WebhookAck struct {
	Status string `json:"status"`
}
