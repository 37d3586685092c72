package service

import (
	"errors"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
)

// storeError keeps typed store errors as they are and wraps anything else
// as *domain.ErrStore.
func storeError(operation string, err error) error {
	var (
		storeErr   *domain.ErrStore
		conflict   *domain.ErrConflict
		validation *domain.ErrValidation
	)
	if errors.As(err, &storeErr) || errors.As(err, &conflict) || errors.As(err, &validation) {
		return err
	}
	return &domain.ErrStore{Operation: operation, Err: err}
}
