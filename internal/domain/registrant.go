package domain

import "time"

// ============================================================
// Registrants (Inscrições)
// ============================================================

// PaymentStatus is the certificate payment state of a registrant.
// Transitions only move forward: not_requested -> pending -> paid.
type PaymentStatus string

const (
	PaymentNotRequested PaymentStatus = "not_requested"
	PaymentPending      PaymentStatus = "pending"
	PaymentPaid         PaymentStatus = "paid"
)

func (s PaymentStatus) rank() int {
	switch s {
	case PaymentNotRequested:
		return 0
	case PaymentPending:
		return 1
	case PaymentPaid:
		return 2
	}
	return -1
}

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	return s.rank() >= 0
}

// OrDefault maps the empty status of legacy rows to not_requested.
func (s PaymentStatus) OrDefault() PaymentStatus {
	if s == "" {
		return PaymentNotRequested
	}
	return s
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
// Staying on the same status is allowed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Registrant is a row of the registrants table.
type Registrant struct {
	ID              string        `json:"id"`
	Nome            string        `json:"nome"`
	Cargo           string        `json:"cargo"`
	CPF             string        `json:"cpf"`
	Email           string        `json:"email"`
	Telefone        string        `json:"telefone"`
	Empresa         string        `json:"empresa"`
	Municipio       string        `json:"municipio"`
	CEP             string        `json:"cep"`
	ParticipaDia1   bool          `json:"participa_dia1"`
	ParticipaDia2   bool          `json:"participa_dia2"`
	IsDeleted       bool          `json:"is_deleted"`
	QuerCertificado bool          `json:"quer_certificado"`
	StatusPagamento PaymentStatus `json:"status_pagamento"`
	CodigoInscricao string        `json:"codigo_inscricao"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Column names shared by every store adapter.
const (
	FieldID              = "id"
	FieldCPF             = "cpf"
	FieldEmail           = "email"
	FieldCodigoInscricao = "codigo_inscricao"
	FieldIsDeleted       = "is_deleted"
	FieldQuerCertificado = "quer_certificado"
	FieldStatusPagamento = "status_pagamento"
	FieldCreatedAt       = "created_at"
)

// LookupFields are the columns accepted by RegistrantStore.GetByField.
var LookupFields = map[string]bool{
	FieldID:              true,
	FieldCPF:             true,
	FieldEmail:           true,
	FieldCodigoInscricao: true,
}

// UpdatableFields are the columns an admin (or a service) may patch.
var UpdatableFields = map[string]bool{
	"nome":               true,
	"cargo":              true,
	"cpf":                true,
	"email":              true,
	"telefone":           true,
	"empresa":            true,
	"municipio":          true,
	"cep":                true,
	"participa_dia1":     true,
	"participa_dia2":     true,
	FieldIsDeleted:       true,
	FieldQuerCertificado: true,
	FieldStatusPagamento: true,
}

// RegistrationRequest is the body for POST /v1/registrants.
type RegistrationRequest struct {
	Nome          string `json:"nome"`
	Cargo         string `json:"cargo"`
	CPF           string `json:"cpf"`
	Email         string `json:"email"`
	Telefone      string `json:"telefone"`
	Empresa       string `json:"empresa"`
	Municipio     string `json:"municipio"`
	CEP           string `json:"cep"`
	ParticipaDia1 bool   `json:"participa_dia1"`
	ParticipaDia2 bool   `json:"participa_dia2"`
}

// RegistrantSummary is the reduced view returned by the public CPF lookup.
type RegistrantSummary struct {
	ID              string        `json:"id"`
	Nome            string        `json:"nome"`
	Email           string        `json:"email"`
	CodigoInscricao string        `json:"codigo_inscricao"`
	QuerCertificado bool          `json:"quer_certificado"`
	StatusPagamento PaymentStatus `json:"status_pagamento"`
}

// Summary builds the public view of r.
func (r *Registrant) Summary() *RegistrantSummary {
	return &RegistrantSummary{
		ID:              r.ID,
		Nome:            r.Nome,
		Email:           r.Email,
		CodigoInscricao: r.CodigoInscricao,
		QuerCertificado: r.QuerCertificado,
		StatusPagamento: r.StatusPagamento,
	}
}

// ============================================================
// Admin
// ============================================================

// BulkRequest is the body for admin bulk operations.
type BulkRequest struct {
	IDs    []string       `json:"ids"`
	Fields map[string]any `json:"fields,omitempty"`
}

// RegistrantStats is returned by GET /v1/admin/registrants/stats.
type RegistrantStats struct {
	Total            int `json:"total"`
	Active           int `json:"active"`
	Deleted          int `json:"deleted"`
	Dia1             int `json:"dia1"`
	Dia2             int `json:"dia2"`
	BothDays         int `json:"ambos_dias"`
	WantsCertificate int `json:"quer_certificado"`
	PaymentPending   int `json:"pagamento_pendente"`
	PaymentPaid      int `json:"pagamento_confirmado"`
}

// ListOptions controls RegistrantStore.ListAll.
type ListOptions struct {
	OrderBy        string
	Descending     bool
	IncludeDeleted bool
}

// OrderableFields are the columns a registrant listing may sort by.
var OrderableFields = map[string]bool{
	FieldCreatedAt:       true,
	FieldEmail:           true,
	FieldCodigoInscricao: true,
	"nome":               true,
	"municipio":          true,
	"empresa":            true,
}
