package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Registrants (implements port.RegistrantStore)
// ============================================================

func registrantRow(r *domain.Registrant) map[string]any {
	row := map[string]any{
		"nome":                      r.Nome,
		"cargo":                     r.Cargo,
		domain.FieldCPF:             r.CPF,
		domain.FieldEmail:           r.Email,
		"telefone":                  r.Telefone,
		"empresa":                   r.Empresa,
		"municipio":                 r.Municipio,
		"cep":                       r.CEP,
		"participa_dia1":            r.ParticipaDia1,
		"participa_dia2":            r.ParticipaDia2,
		domain.FieldIsDeleted:       r.IsDeleted,
		domain.FieldQuerCertificado: r.QuerCertificado,
		domain.FieldStatusPagamento: r.StatusPagamento,
		domain.FieldCodigoInscricao: r.CodigoInscricao,
	}
	if r.ID != "" {
		row[domain.FieldID] = r.ID
	}
	return row
}

func decodeRegistrants(body []byte) ([]domain.Registrant, error) {
	if len(body) == 0 {
		return []domain.Registrant{}, nil
	}
	var rows []domain.Registrant
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode registrants: %w", err)
	}
	return rows, nil
}

// Insert creates a registrant and returns the stored row.
func (c *Client) Insert(ctx context.Context, r *domain.Registrant) (*domain.Registrant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertRegistrant")
	defer span.End()

	body, err := c.execute("insert registrant", func() ([]byte, error) {
		return c.doPost(ctx, tableRegistrants, registrantRow(r))
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRegistrants(body)
	if err != nil {
		return nil, &domain.ErrStore{Operation: "insert registrant", Err: err}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrStore{Operation: "insert registrant", Err: fmt.Errorf("no row returned")}
	}
	span.SetAttributes(attribute.String("registrant.id", rows[0].ID))
	return &rows[0], nil
}

// GetByID returns the registrant with id, or nil.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Registrant, error) {
	return c.GetByField(ctx, domain.FieldID, id)
}

// GetByField returns the first registrant whose unique column equals value, or nil.
func (c *Client) GetByField(ctx context.Context, field, value string) (*domain.Registrant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRegistrantByField")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.field", field))

	if !domain.LookupFields[field] {
		return nil, &domain.ErrValidation{Field: field, Message: "campo de busca não suportado"}
	}
	// PostgREST rejects a malformed uuid literal; no row can match it.
	if field == domain.FieldID {
		if _, err := uuid.Parse(value); err != nil {
			return nil, nil
		}
	}

	body, err := c.execute("get registrant", func() ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, tableRegistrants+"?select=*&"+eq(field, value)+"&limit=1")
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRegistrants(body)
	if err != nil {
		return nil, &domain.ErrStore{Operation: "get registrant", Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdateByID patches the given columns of one registrant.
func (c *Client) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRegistrant")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.id", id))

	_, err := c.execute("update registrant", func() ([]byte, error) {
		return c.send(ctx, http.MethodPatch, tableRegistrants+"?"+eq(domain.FieldID, id), fields, preferMinimal)
	})
	return err
}

// UpdateByIDs patches the given columns of every listed registrant and
// returns how many rows changed.
func (c *Client) UpdateByIDs(ctx context.Context, ids []string, fields map[string]any) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRegistrants")
	defer span.End()
	span.SetAttributes(attribute.Int("registrant.count", len(ids)))

	if len(ids) == 0 {
		return 0, nil
	}

	body, err := c.execute("bulk update registrants", func() ([]byte, error) {
		return c.doPatch(ctx, tableRegistrants+"?"+in(domain.FieldID, ids), fields)
	})
	if err != nil {
		return 0, err
	}
	return countRows(body), nil
}

// DeleteByIDs removes the listed registrants permanently.
func (c *Client) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRegistrants")
	defer span.End()
	span.SetAttributes(attribute.Int("registrant.count", len(ids)))

	if len(ids) == 0 {
		return 0, nil
	}

	body, err := c.execute("delete registrants", func() ([]byte, error) {
		return c.doDelete(ctx, tableRegistrants+"?"+in(domain.FieldID, ids))
	})
	if err != nil {
		return 0, err
	}
	return countRows(body), nil
}

// ListAll returns every registrant in the requested order.
func (c *Client) ListAll(ctx context.Context, opts domain.ListOptions) ([]domain.Registrant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRegistrants")
	defer span.End()

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = domain.FieldCreatedAt
	}
	if !domain.OrderableFields[orderBy] {
		return nil, &domain.ErrValidation{Field: "order", Message: "coluna de ordenação inválida"}
	}
	direction := "asc"
	if opts.Descending {
		direction = "desc"
	}

	path := fmt.Sprintf("%s?select=*&order=%s.%s", tableRegistrants, orderBy, direction)
	if !opts.IncludeDeleted {
		path += "&" + eq(domain.FieldIsDeleted, "false")
	}

	body, err := c.execute("list registrants", func() ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, path)
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRegistrants(body)
	if err != nil {
		return nil, &domain.ErrStore{Operation: "list registrants", Err: err}
	}
	return rows, nil
}
