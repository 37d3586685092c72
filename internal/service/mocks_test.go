package service_test

import (
	"context"
	"sort"
	"sync"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
)

// --- Mocks ---

// memStore is an in-memory RegistrantStore enforcing the unique columns.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]*domain.Registrant
	order   []string
	err     error
	inserts int
	reads   int
	updates []map[string]any

	// insertErrs are returned by successive Insert calls before the store
	// falls back to its normal behaviour.
	insertErrs []error
}

func newMemStore(rows ...domain.Registrant) *memStore {
	s := &memStore{rows: map[string]*domain.Registrant{}}
	for i := range rows {
		r := rows[i]
		s.rows[r.ID] = &r
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *memStore) Insert(_ context.Context, r *domain.Registrant) (*domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	for _, existing := range s.rows {
		switch {
		case existing.CPF == r.CPF:
			return nil, domain.ConflictFromDetail("registrants_cpf_key")
		case existing.Email == r.Email:
			return nil, domain.ConflictFromDetail("registrants_email_key")
		case existing.CodigoInscricao == r.CodigoInscricao:
			return nil, domain.ConflictFromDetail("registrants_codigo_inscricao_key")
		}
	}
	cp := *r
	s.rows[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
	out := cp
	return &out, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) GetByField(_ context.Context, field, value string) (*domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	for _, id := range s.order {
		r := s.rows[id]
		if r == nil {
			continue
		}
		var v string
		switch field {
		case domain.FieldID:
			v = r.ID
		case domain.FieldCPF:
			v = r.CPF
		case domain.FieldEmail:
			v = r.Email
		case domain.FieldCodigoInscricao:
			v = r.CodigoInscricao
		}
		if v == value {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateByID(ctx context.Context, id string, fields map[string]any) error {
	_, err := s.UpdateByIDs(ctx, []string{id}, fields)
	return err
}

func (s *memStore) UpdateByIDs(_ context.Context, ids []string, fields map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.updates = append(s.updates, fields)
	n := 0
	for _, id := range ids {
		r, ok := s.rows[id]
		if !ok {
			continue
		}
		n++
		for k, v := range fields {
			applyField(r, k, v)
		}
	}
	return n, nil
}

func (s *memStore) DeleteByIDs(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	n := 0
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListAll(_ context.Context, opts domain.ListOptions) ([]domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Registrant
	for _, id := range s.order {
		r, ok := s.rows[id]
		if !ok || (r.IsDeleted && !opts.IncludeDeleted) {
			continue
		}
		out = append(out, *r)
	}
	if opts.OrderBy == "nome" {
		sort.SliceStable(out, func(i, j int) bool {
			if opts.Descending {
				return out[i].Nome > out[j].Nome
			}
			return out[i].Nome < out[j].Nome
		})
	}
	return out, nil
}

func (s *memStore) Ping(context.Context) error { return s.err }

func (s *memStore) row(id string) domain.Registrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[id]
}

func applyField(r *domain.Registrant, k string, v any) {
	switch k {
	case "nome":
		r.Nome = v.(string)
	case "cargo":
		r.Cargo = v.(string)
	case domain.FieldCPF:
		r.CPF = v.(string)
	case domain.FieldEmail:
		r.Email = v.(string)
	case "telefone":
		r.Telefone = v.(string)
	case "empresa":
		r.Empresa = v.(string)
	case "municipio":
		r.Municipio = v.(string)
	case "cep":
		r.CEP = v.(string)
	case "participa_dia1":
		r.ParticipaDia1 = v.(bool)
	case "participa_dia2":
		r.ParticipaDia2 = v.(bool)
	case domain.FieldIsDeleted:
		r.IsDeleted = v.(bool)
	case domain.FieldQuerCertificado:
		r.QuerCertificado = v.(bool)
	case domain.FieldStatusPagamento:
		r.StatusPagamento = v.(domain.PaymentStatus)
	}
}

// mockProvider records every call made to the payment provider.
type mockProvider struct {
	mu sync.Mutex

	existing  *domain.AsaasCustomer
	customers map[string]*domain.AsaasCustomer
	invoice   string
	err       error

	calls    []string
	created  []*domain.AsaasCustomer
	updated  []*domain.AsaasCustomer
	payments []*domain.AsaasPayment
}

func (m *mockProvider) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockProvider) FindCustomerByCPF(_ context.Context, _ string) (*domain.AsaasCustomer, error) {
	m.record("FindCustomerByCPF")
	if m.err != nil {
		return nil, m.err
	}
	return m.existing, nil
}

func (m *mockProvider) CreateCustomer(_ context.Context, c *domain.AsaasCustomer) (*domain.AsaasCustomer, error) {
	m.record("CreateCustomer")
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, c)
	out := *c
	out.ID = "cus_new"
	return &out, nil
}

func (m *mockProvider) UpdateCustomer(_ context.Context, id string, c *domain.AsaasCustomer) (*domain.AsaasCustomer, error) {
	m.record("UpdateCustomer")
	if m.err != nil {
		return nil, m.err
	}
	m.updated = append(m.updated, c)
	out := *c
	out.ID = id
	return &out, nil
}

func (m *mockProvider) GetCustomer(_ context.Context, id string) (*domain.AsaasCustomer, error) {
	m.record("GetCustomer")
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.customers[id]
	if !ok {
		return nil, &domain.ErrProvider{Operation: "GetCustomer", Detail: "customer not found"}
	}
	return c, nil
}

func (m *mockProvider) CreatePayment(_ context.Context, p *domain.AsaasPayment) (*domain.AsaasPayment, error) {
	m.record("CreatePayment")
	if m.err != nil {
		return nil, m.err
	}
	m.payments = append(m.payments, p)
	out := *p
	out.ID = "pay_1"
	out.InvoiceURL = m.invoice
	return &out, nil
}

// mockNotifier counts notifications.
type mockNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (m *mockNotifier) NotifyRegistration(_ context.Context, r *domain.Registrant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, r.ID)
}

// mockAdminStore serves a single admin.
type mockAdminStore struct {
	admin *domain.AdminUser
	err   error
}

func (m *mockAdminStore) GetAdminByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.admin != nil && m.admin.Email == email {
		return m.admin, nil
	}
	return nil, nil
}

// mockPinger returns a fixed error.
type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

func sampleRegistrant(id string, status domain.PaymentStatus) domain.Registrant {
	return domain.Registrant{
		ID:              id,
		Nome:            "Ana Souza",
		Cargo:           "Analista",
		CPF:             "52998224725",
		Email:           "ana@example.com",
		Telefone:        "11987654321",
		Empresa:         "Prefeitura",
		Municipio:       "Campinas",
		CEP:             "13010-000",
		ParticipaDia1:   true,
		StatusPagamento: status,
		CodigoInscricao: "WKS-" + id,
	}
}
