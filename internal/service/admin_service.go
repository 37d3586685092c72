package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var adminTracer = otel.Tracer("service/admin")

// maxBulkIDs bounds a single bulk request.
const maxBulkIDs = 500

// AdminService backs the protected registrant management API.
type AdminService struct {
	store  port.RegistrantStore
	logger *zap.Logger
}

// NewAdminService creates the admin service.
func NewAdminService(store port.RegistrantStore, logger *zap.Logger) *AdminService {
	return &AdminService{store: store, logger: logger}
}

// ============================================================
// Reads
// ============================================================

// List returns registrants in the requested order.
func (s *AdminService) List(ctx context.Context, opts domain.ListOptions) ([]domain.Registrant, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.List")
	defer span.End()

	if opts.OrderBy != "" && !domain.OrderableFields[opts.OrderBy] {
		return nil, &domain.ErrValidation{Field: "order", Message: "coluna de ordenação inválida"}
	}

	list, err := s.store.ListAll(ctx, opts)
	if err != nil {
		return nil, storeError("list registrants", err)
	}
	return list, nil
}

// Get returns one registrant, deleted or not.
func (s *AdminService) Get(ctx context.Context, id string) (*domain.Registrant, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.id", id))

	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get registrant", err)
	}
	if r == nil {
		return nil, &domain.ErrNotFound{Resource: "registrant", ID: id}
	}
	return r, nil
}

// Stats aggregates attendance and certificate figures over every row.
func (s *AdminService) Stats(ctx context.Context) (*domain.RegistrantStats, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.Stats")
	defer span.End()

	list, err := s.store.ListAll(ctx, domain.ListOptions{IncludeDeleted: true})
	if err != nil {
		return nil, storeError("list registrants", err)
	}
	return ComputeStats(list), nil
}

// ComputeStats counts deleted rows only in Total and Deleted.
func ComputeStats(list []domain.Registrant) *domain.RegistrantStats {
	st := &domain.RegistrantStats{Total: len(list)}
	for _, r := range list {
		if r.IsDeleted {
			st.Deleted++
			continue
		}
		st.Active++
		if r.ParticipaDia1 {
			st.Dia1++
		}
		if r.ParticipaDia2 {
			st.Dia2++
		}
		if r.ParticipaDia1 && r.ParticipaDia2 {
			st.BothDays++
		}
		if r.QuerCertificado {
			st.WantsCertificate++
		}
		switch r.StatusPagamento.OrDefault() {
		case domain.PaymentPending:
			st.PaymentPending++
		case domain.PaymentPaid:
			st.PaymentPaid++
		}
	}
	return st
}

var csvHeader = []string{
	"codigo_inscricao", "nome", "cargo", "cpf", "email", "telefone", "empresa", "municipio", "cep",
	"participa_dia1", "participa_dia2", "quer_certificado", "status_pagamento", "is_deleted", "created_at",
}

// ExportCSV writes registrants as CSV, oldest first.
func (s *AdminService) ExportCSV(ctx context.Context, w io.Writer, includeDeleted bool) error {
	ctx, span := adminTracer.Start(ctx, "AdminService.ExportCSV")
	defer span.End()

	list, err := s.store.ListAll(ctx, domain.ListOptions{IncludeDeleted: includeDeleted})
	if err != nil {
		return storeError("list registrants", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range list {
		record := []string{
			r.CodigoInscricao, csvText(r.Nome), csvText(r.Cargo), domain.FormatCPF(r.CPF), csvText(r.Email),
			r.Telefone, csvText(r.Empresa), csvText(r.Municipio), r.CEP,
			strconv.FormatBool(r.ParticipaDia1), strconv.FormatBool(r.ParticipaDia2),
			strconv.FormatBool(r.QuerCertificado), string(r.StatusPagamento.OrDefault()),
			strconv.FormatBool(r.IsDeleted), r.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvText neutralizes free-text cells that a spreadsheet would evaluate as a formula.
func csvText(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

// ============================================================
// Writes
// ============================================================

// Update patches one registrant and returns the stored row.
func (s *AdminService) Update(ctx context.Context, id string, fields map[string]any) (*domain.Registrant, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.id", id))

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	clean, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	if err := checkPaymentFields(current, clean); err != nil {
		return nil, err
	}

	if err := s.store.UpdateByID(ctx, id, clean); err != nil {
		return nil, storeError("update registrant", err)
	}
	s.logger.Info("admin: registrant updated",
		zap.String("registrant_id", id),
		zap.Strings("fields", fieldNames(clean)),
	)
	return s.Get(ctx, id)
}

// BulkUpdate applies the same patch to every id. When the patch touches
// payment fields each row is checked first; one violation rejects all.
func (s *AdminService) BulkUpdate(ctx context.Context, req *domain.BulkRequest) (int, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.BulkUpdate")
	defer span.End()

	if err := validateIDs(req); err != nil {
		return 0, err
	}
	clean, err := normalizeFields(req.Fields)
	if err != nil {
		return 0, err
	}
	if _, ok := clean[domain.FieldCPF]; ok {
		return 0, &domain.ErrValidation{Field: domain.FieldCPF, Message: "CPF não pode ser alterado em lote"}
	}
	if _, ok := clean[domain.FieldEmail]; ok {
		return 0, &domain.ErrValidation{Field: domain.FieldEmail, Message: "e-mail não pode ser alterado em lote"}
	}

	_, touchesStatus := clean[domain.FieldStatusPagamento]
	_, touchesCert := clean[domain.FieldQuerCertificado]
	if touchesStatus || touchesCert {
		if err := s.checkAll(ctx, req.IDs, clean); err != nil {
			return 0, err
		}
	}
	if clean[domain.FieldStatusPagamento] == domain.PaymentPaid {
		clean[domain.FieldQuerCertificado] = true
	}

	n, err := s.store.UpdateByIDs(ctx, req.IDs, clean)
	if err != nil {
		return 0, storeError("bulk update registrants", err)
	}
	s.logger.Info("admin: bulk update",
		zap.Int("requested", len(req.IDs)),
		zap.Int("affected", n),
		zap.Strings("fields", fieldNames(clean)),
	)
	return n, nil
}

// checkAll loads the rows concurrently and validates the payment patch
// against each of them.
func (s *AdminService) checkAll(ctx context.Context, ids []string, fields map[string]any) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			r, err := s.store.GetByID(gCtx, id)
			if err != nil {
				return storeError("get registrant", err)
			}
			if r == nil {
				return &domain.ErrNotFound{Resource: "registrant", ID: id}
			}
			return checkPaymentFields(r, copyFields(fields))
		})
	}
	return g.Wait()
}

// SoftDelete flags the registrants as deleted.
func (s *AdminService) SoftDelete(ctx context.Context, req *domain.BulkRequest) (int, error) {
	return s.setDeleted(ctx, req, true)
}

// Restore clears the deleted flag.
func (s *AdminService) Restore(ctx context.Context, req *domain.BulkRequest) (int, error) {
	return s.setDeleted(ctx, req, false)
}

func (s *AdminService) setDeleted(ctx context.Context, req *domain.BulkRequest, deleted bool) (int, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.SetDeleted")
	defer span.End()
	span.SetAttributes(attribute.Bool("registrant.deleted", deleted))

	if err := validateIDs(req); err != nil {
		return 0, err
	}
	n, err := s.store.UpdateByIDs(ctx, req.IDs, map[string]any{domain.FieldIsDeleted: deleted})
	if err != nil {
		return 0, storeError("set deleted", err)
	}
	s.logger.Info("admin: deleted flag changed",
		zap.Bool("deleted", deleted),
		zap.Int("affected", n),
	)
	return n, nil
}

// HardDelete removes the registrants permanently.
func (s *AdminService) HardDelete(ctx context.Context, req *domain.BulkRequest) (int, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.HardDelete")
	defer span.End()

	if err := validateIDs(req); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteByIDs(ctx, req.IDs)
	if err != nil {
		return 0, storeError("delete registrants", err)
	}
	s.logger.Warn("admin: registrants permanently deleted", zap.Int("affected", n))
	return n, nil
}

// ============================================================
// Field validation
// ============================================================

func validateIDs(req *domain.BulkRequest) error {
	if req == nil || len(req.IDs) == 0 {
		return &domain.ErrValidation{Field: "ids", Message: "informe ao menos um id"}
	}
	if len(req.IDs) > maxBulkIDs {
		return &domain.ErrValidation{Field: "ids", Message: fmt.Sprintf("máximo de %d ids por requisição", maxBulkIDs)}
	}
	for _, id := range req.IDs {
		if strings.TrimSpace(id) == "" {
			return &domain.ErrValidation{Field: "ids", Message: "id vazio"}
		}
	}
	return nil
}

var boolFields = map[string]bool{
	"participa_dia1":            true,
	"participa_dia2":            true,
	domain.FieldIsDeleted:       true,
	domain.FieldQuerCertificado: true,
}

// normalizeFields checks column names and value types and applies the same
// normalization as sign-up.
func normalizeFields(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, &domain.ErrValidation{Field: "fields", Message: "nenhum campo para atualizar"}
	}

	clean := make(map[string]any, len(fields))
	for col, v := range fields {
		if !domain.UpdatableFields[col] {
			return nil, &domain.ErrValidation{Field: col, Message: "campo não pode ser alterado"}
		}

		if boolFields[col] {
			b, ok := v.(bool)
			if !ok {
				return nil, &domain.ErrValidation{Field: col, Message: "valor deve ser booleano"}
			}
			clean[col] = b
			continue
		}

		str, ok := v.(string)
		if !ok {
			if st, isStatus := v.(domain.PaymentStatus); isStatus {
				str, ok = string(st), true
			}
		}
		if !ok {
			return nil, &domain.ErrValidation{Field: col, Message: "valor deve ser texto"}
		}
		str = strings.TrimSpace(str)

		switch col {
		case domain.FieldCPF:
			if !domain.ValidCPF(str) {
				return nil, &domain.ErrValidation{Field: col, Message: "CPF inválido"}
			}
			clean[col] = domain.OnlyDigits(str)
		case domain.FieldEmail:
			str = strings.ToLower(str)
			if !domain.ValidEmail(str) {
				return nil, &domain.ErrValidation{Field: col, Message: "e-mail inválido"}
			}
			clean[col] = str
		case "telefone":
			phone, err := domain.NormalizePhone(str)
			if err != nil {
				return nil, &domain.ErrValidation{Field: col, Message: "telefone inválido"}
			}
			clean[col] = phone
		case "cep":
			cep, ok := domain.NormalizeCEP(str)
			if !ok {
				return nil, &domain.ErrValidation{Field: col, Message: "CEP deve ter 8 dígitos"}
			}
			clean[col] = cep
		case domain.FieldStatusPagamento:
			st := domain.PaymentStatus(str)
			if !st.Valid() {
				return nil, &domain.ErrValidation{Field: col, Message: "status de pagamento desconhecido"}
			}
			clean[col] = st
		default:
			if str == "" {
				return nil, &domain.ErrValidation{Field: col, Message: "campo obrigatório"}
			}
			clean[col] = str
		}
	}
	return clean, nil
}

// checkPaymentFields enforces the monotonic status path and keeps
// paid => quer_certificado. Marking paid also sets quer_certificado.
func checkPaymentFields(current *domain.Registrant, fields map[string]any) error {
	from := current.StatusPagamento.OrDefault()
	to := from
	if st, ok := fields[domain.FieldStatusPagamento].(domain.PaymentStatus); ok {
		if !from.CanTransitionTo(st) {
			return &domain.ErrValidation{
				Field:   domain.FieldStatusPagamento,
				Message: fmt.Sprintf("transição inválida de %s para %s (registro %s)", from, st, current.ID),
			}
		}
		to = st
	}

	if want, ok := fields[domain.FieldQuerCertificado].(bool); ok && !want && to == domain.PaymentPaid {
		return &domain.ErrValidation{
			Field:   domain.FieldQuerCertificado,
			Message: "inscrição paga deve manter quer_certificado",
		}
	}
	if to == domain.PaymentPaid {
		fields[domain.FieldQuerCertificado] = true
	}
	return nil
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	return names
}
