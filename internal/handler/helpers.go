package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/workshop-registration-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// parseListOptions reads ?order=column[.asc|.desc] and ?include_deleted=true.
func parseListOptions(r *http.Request) domain.ListOptions {
	q := r.URL.Query()
	opts := domain.ListOptions{OrderBy: domain.FieldCreatedAt}

	if order := strings.TrimSpace(q.Get("order")); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		opts.OrderBy = col
		opts.Descending = strings.EqualFold(dir, "desc")
	}
	if v := q.Get("include_deleted"); v != "" {
		opts.IncludeDeleted, _ = strconv.ParseBool(v)
	}
	return opts
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var configuration *domain.ErrConfiguration
	var provider *domain.ErrProvider
	var reconciliation *domain.ErrReconciliation
	var conflict *domain.ErrConflict
	var unauthorized *domain.ErrUnauthorized
	var store *domain.ErrStore

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &configuration):
		logger.Error("configuration error", zap.String("setting", configuration.Setting), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &provider):
		logger.Warn("payment provider error",
			zap.String("operation", provider.Operation),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &reconciliation):
		logger.Warn("reconciliation error", zap.String("customer_id", reconciliation.CustomerID))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("field", conflict.Field))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &store):
		logger.Error("store error", zap.String("operation", store.Operation), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro ao acessar o banco de dados")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleWebhookError renders every reconciliation failure as 400 so the
// provider keeps redelivering the event.
func handleWebhookError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var configuration *domain.ErrConfiguration
	var store *domain.ErrStore
	switch {
	case errors.As(err, &configuration), errors.As(err, &store):
		logger.Error("webhook failed", zap.Error(err))
	default:
		logger.Warn("webhook rejected", zap.Error(err))
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
