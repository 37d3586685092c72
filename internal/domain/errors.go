package domain

import (
	"fmt"
	"strings"
)

// Error types for consistent error handling across the registration API.

// ErrValidation indicates caller-supplied input is missing or malformed.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConfiguration indicates a required credential or setting is absent.
type ErrConfiguration struct {
	Setting string
	Message string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Setting, e.Message)
}

// ErrProvider indicates the payment provider rejected a request or answered
// with an unexpected shape. Detail carries the provider's own description.
type ErrProvider struct {
	Operation string
	Detail    string
	Err       error
}

func (e *ErrProvider) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("payment provider error [%s]: %s", e.Operation, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("payment provider error [%s]: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("payment provider error [%s]", e.Operation)
}

func (e *ErrProvider) Unwrap() error {
	return e.Err
}

// ErrReconciliation indicates a webhook could not be mapped to local data
// because the provider record is incomplete.
type ErrReconciliation struct {
	CustomerID string
	Message    string
}

func (e *ErrReconciliation) Error() string {
	return fmt.Sprintf("reconciliation error [customer %s]: %s", e.CustomerID, e.Message)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrStore indicates the registrant store rejected a read or write.
type ErrStore struct {
	Operation string
	Err       error
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Operation, e.Err)
}

func (e *ErrStore) Unwrap() error {
	return e.Err
}

// ErrConflict indicates a unique constraint was violated (duplicate email or CPF).
type ErrConflict struct {
	Field   string
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ConflictFromDetail builds the conflict error for a unique violation whose
// constraint name or detail text mentions the offending column.
func ConflictFromDetail(detail string) *ErrConflict {
	d := strings.ToLower(detail)
	switch {
	case strings.Contains(d, FieldCodigoInscricao):
		return &ErrConflict{Field: FieldCodigoInscricao, Message: "Código de inscrição já utilizado"}
	case strings.Contains(d, FieldEmail):
		return &ErrConflict{Field: FieldEmail, Message: "E-mail já cadastrado"}
	case strings.Contains(d, FieldCPF):
		return &ErrConflict{Field: FieldCPF, Message: "CPF já cadastrado"}
	}
	return &ErrConflict{Message: "Registro duplicado"}
}
