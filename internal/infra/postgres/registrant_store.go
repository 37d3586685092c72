package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/workshop-registration-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

const (
	uniqueViolation = "23505"

	registrantColumns = `id::text, nome, cargo, cpf, email, telefone, empresa, municipio, cep,
		participa_dia1, participa_dia2, is_deleted, quer_certificado, status_pagamento,
		codigo_inscricao, created_at`
)

// Store implements port.RegistrantStore and port.AdminStore on pgx.
type Store struct {
	pool   *pgxpool.Pool
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewStore creates a pgx-backed store.
func NewStore(pool *pgxpool.Pool, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Store {
	return &Store{pool: pool, cb: cb, logger: logger}
}

// IsSuccessful is the breaker's failure classifier: server-reported SQL
// errors (constraint violations) and empty results are not outages.
func IsSuccessful(err error) bool {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

// MapError translates pgx errors into domain errors: unique violations
// become *domain.ErrConflict naming the column, anything else *domain.ErrStore.
func MapError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ConflictFromDetail(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	return &domain.ErrStore{Operation: operation, Err: err}
}

func (s *Store) run(operation string, fn func() error) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil {
		return MapError(operation, err)
	}
	return nil
}

func scanRegistrant(row pgx.Row) (*domain.Registrant, error) {
	var r domain.Registrant
	var status string
	err := row.Scan(&r.ID, &r.Nome, &r.Cargo, &r.CPF, &r.Email, &r.Telefone, &r.Empresa, &r.Municipio, &r.CEP,
		&r.ParticipaDia1, &r.ParticipaDia2, &r.IsDeleted, &r.QuerCertificado, &status,
		&r.CodigoInscricao, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.StatusPagamento = domain.PaymentStatus(status)
	return &r, nil
}

// Insert creates a registrant and returns the stored row.
func (s *Store) Insert(ctx context.Context, r *domain.Registrant) (*domain.Registrant, error) {
	ctx, span := tracer.Start(ctx, "Postgres.InsertRegistrant")
	defer span.End()

	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	span.SetAttributes(attribute.String("registrant.id", id))

	q := `INSERT INTO registrants (id, nome, cargo, cpf, email, telefone, empresa, municipio, cep,
		participa_dia1, participa_dia2, is_deleted, quer_certificado, status_pagamento, codigo_inscricao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + registrantColumns

	var out *domain.Registrant
	err := s.run("insert registrant", func() error {
		var err error
		out, err = scanRegistrant(s.pool.QueryRow(ctx, q,
			id, r.Nome, r.Cargo, r.CPF, r.Email, r.Telefone, r.Empresa, r.Municipio, r.CEP,
			r.ParticipaDia1, r.ParticipaDia2, r.IsDeleted, r.QuerCertificado, string(r.StatusPagamento), r.CodigoInscricao))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the registrant with id, or nil.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Registrant, error) {
	return s.GetByField(ctx, domain.FieldID, id)
}

// GetByField returns the registrant whose unique column equals value, or nil.
func (s *Store) GetByField(ctx context.Context, field, value string) (*domain.Registrant, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetRegistrantByField")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.field", field))

	if !domain.LookupFields[field] {
		return nil, &domain.ErrValidation{Field: field, Message: "campo de busca não suportado"}
	}
	if field == domain.FieldID {
		if _, err := uuid.Parse(value); err != nil {
			return nil, nil
		}
	}

	q := fmt.Sprintf("SELECT %s FROM registrants WHERE %s = $1 LIMIT 1", registrantColumns, field)

	var out *domain.Registrant
	err := s.run("get registrant", func() error {
		r, err := scanRegistrant(s.pool.QueryRow(ctx, q, value))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuildUpdate renders an UPDATE for the given columns restricted to ids.
// Columns outside domain.UpdatableFields are rejected.
func BuildUpdate(fields map[string]any, ids []string) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, &domain.ErrValidation{Field: "fields", Message: "nenhum campo para atualizar"}
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !domain.UpdatableFields[col] {
			return "", nil, &domain.ErrValidation{Field: col, Message: "campo não pode ser alterado"}
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		v := fields[col]
		if st, ok := v.(domain.PaymentStatus); ok {
			v = string(st)
		}
		args = append(args, v)
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	args = append(args, ids)

	q := fmt.Sprintf("UPDATE registrants SET %s WHERE id::text = ANY($%d)", strings.Join(sets, ", "), len(args))
	return q, args, nil
}

// UpdateByID patches the given columns of one registrant.
func (s *Store) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateRegistrant")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.id", id))

	_, err := s.update(ctx, "update registrant", []string{id}, fields)
	return err
}

// UpdateByIDs patches the given columns of every listed registrant.
func (s *Store) UpdateByIDs(ctx context.Context, ids []string, fields map[string]any) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateRegistrants")
	defer span.End()
	span.SetAttributes(attribute.Int("registrant.count", len(ids)))

	if len(ids) == 0 {
		return 0, nil
	}
	return s.update(ctx, "bulk update registrants", ids, fields)
}

func (s *Store) update(ctx context.Context, operation string, ids []string, fields map[string]any) (int, error) {
	q, args, err := BuildUpdate(fields, ids)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = s.run(operation, func() error {
		tag, err := s.pool.Exec(ctx, q, args...)
		affected = tag.RowsAffected()
		return err
	})
	return int(affected), err
}

// DeleteByIDs removes the listed registrants permanently.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteRegistrants")
	defer span.End()
	span.SetAttributes(attribute.Int("registrant.count", len(ids)))

	if len(ids) == 0 {
		return 0, nil
	}

	var affected int64
	err := s.run("delete registrants", func() error {
		tag, err := s.pool.Exec(ctx, "DELETE FROM registrants WHERE id::text = ANY($1)", ids)
		affected = tag.RowsAffected()
		return err
	})
	return int(affected), err
}

// BuildList renders the SELECT used by ListAll.
func BuildList(opts domain.ListOptions) (string, error) {
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = domain.FieldCreatedAt
	}
	if !domain.OrderableFields[orderBy] {
		return "", &domain.ErrValidation{Field: "order", Message: "coluna de ordenação inválida"}
	}
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	q := "SELECT " + registrantColumns + " FROM registrants"
	if !opts.IncludeDeleted {
		q += " WHERE is_deleted = FALSE"
	}
	return fmt.Sprintf("%s ORDER BY %s %s", q, orderBy, direction), nil
}

// ListAll returns every registrant in the requested order.
func (s *Store) ListAll(ctx context.Context, opts domain.ListOptions) ([]domain.Registrant, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListRegistrants")
	defer span.End()

	q, err := BuildList(opts)
	if err != nil {
		return nil, err
	}

	list := []domain.Registrant{}
	err = s.run("list registrants", func() error {
		rows, err := s.pool.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRegistrant(rows)
			if err != nil {
				return err
			}
			list = append(list, *r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Postgres.Ping")
	defer span.End()

	return s.run("ping", func() error {
		return s.pool.Ping(ctx)
	})
}

// GetAdminByEmail reads an admin credential row (implements port.AdminStore).
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetAdminByEmail")
	defer span.End()

	var out *domain.AdminUser
	err := s.run("get admin", func() error {
		var a domain.AdminUser
		err := s.pool.QueryRow(ctx,
			"SELECT id::text, email, password_hash, created_at FROM admin_users WHERE email = $1",
			email,
		).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
