package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func adminFixture() (*memStore, *service.AdminService) {
	r2 := sampleRegistrant("r2", domain.PaymentPending)
	r2.Nome, r2.CPF, r2.Email = "Bruno Lima", "11144477735", "bruno@example.com"
	r2.ParticipaDia2 = true
	r2.QuerCertificado = true

	r3 := sampleRegistrant("r3", domain.PaymentPaid)
	r3.Nome, r3.CPF, r3.Email = "Carla Dias", "39053344705", "carla@example.com"
	r3.QuerCertificado = true
	r3.IsDeleted = true

	store := newMemStore(sampleRegistrant("r1", domain.PaymentNotRequested), r2, r3)
	return store, service.NewAdminService(store, zap.NewNop())
}

func TestAdminList(t *testing.T) {
	_, svc := adminFixture()

	list, err := svc.List(context.Background(), domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.List(context.Background(), domain.ListOptions{IncludeDeleted: true, OrderBy: "nome", Descending: true})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Carla Dias", list[0].Nome)

	_, err = svc.List(context.Background(), domain.ListOptions{OrderBy: "cpf; drop table"})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
}

func TestAdminGet_NotFound(t *testing.T) {
	_, svc := adminFixture()
	_, err := svc.Get(context.Background(), "missing")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestAdminUpdate_NormalizesFields(t *testing.T) {
	store, svc := adminFixture()

	r, err := svc.Update(context.Background(), "r1", map[string]any{
		"email":    " NOVA@Example.com ",
		"telefone": "(21) 98765-4321",
		"cep":      "20040002",
	})
	require.NoError(t, err)
	assert.Equal(t, "nova@example.com", r.Email)
	assert.Equal(t, "21987654321", r.Telefone)
	assert.Equal(t, "20040-002", r.CEP)
	assert.Equal(t, "nova@example.com", store.row("r1").Email)
}

func TestAdminUpdate_RejectsUnknownAndMistypedFields(t *testing.T) {
	_, svc := adminFixture()

	_, err := svc.Update(context.Background(), "r1", map[string]any{"codigo_inscricao": "WKS-XXXXX"})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "codigo_inscricao", ve.Field)

	_, err = svc.Update(context.Background(), "r1", map[string]any{"participa_dia2": "sim"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "participa_dia2", ve.Field)

	_, err = svc.Update(context.Background(), "r1", map[string]any{})
	require.ErrorAs(t, err, &ve)
}

func TestAdminUpdate_StatusIsMonotonic(t *testing.T) {
	store, svc := adminFixture()

	_, err := svc.Update(context.Background(), "r2", map[string]any{"status_pagamento": "not_requested"})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.PaymentPending, store.row("r2").StatusPagamento)

	r, err := svc.Update(context.Background(), "r1", map[string]any{"status_pagamento": "paid"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, r.StatusPagamento)
	assert.True(t, r.QuerCertificado)

	_, err = svc.Update(context.Background(), "r1", map[string]any{"quer_certificado": false})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.FieldQuerCertificado, ve.Field)
}

func TestAdminBulkUpdate(t *testing.T) {
	store, svc := adminFixture()

	n, err := svc.BulkUpdate(context.Background(), &domain.BulkRequest{
		IDs:    []string{"r1", "r2"},
		Fields: map[string]any{"status_pagamento": "pending"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.PaymentPending, store.row("r1").StatusPagamento)
}

func TestAdminBulkUpdate_OneViolationRejectsAll(t *testing.T) {
	store, svc := adminFixture()

	_, err := svc.BulkUpdate(context.Background(), &domain.BulkRequest{
		IDs:    []string{"r1", "r3"},
		Fields: map[string]any{"status_pagamento": "pending"},
	})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, store.updates)
	assert.Equal(t, domain.PaymentNotRequested, store.row("r1").StatusPagamento)
}

func TestAdminBulkUpdate_RejectsUniqueColumns(t *testing.T) {
	_, svc := adminFixture()
	_, err := svc.BulkUpdate(context.Background(), &domain.BulkRequest{
		IDs:    []string{"r1", "r2"},
		Fields: map[string]any{"email": "same@example.com"},
	})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
}

func TestAdminSoftDeleteAndRestore(t *testing.T) {
	store, svc := adminFixture()

	n, err := svc.SoftDelete(context.Background(), &domain.BulkRequest{IDs: []string{"r1", "r2", "missing"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, store.row("r1").IsDeleted)

	n, err = svc.Restore(context.Background(), &domain.BulkRequest{IDs: []string{"r1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, store.row("r1").IsDeleted)

	_, err = svc.SoftDelete(context.Background(), &domain.BulkRequest{})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
}

func TestAdminHardDelete(t *testing.T) {
	store, svc := adminFixture()

	n, err := svc.HardDelete(context.Background(), &domain.BulkRequest{IDs: []string{"r3"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := store.GetByID(context.Background(), "r3")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestAdminStats(t *testing.T) {
	_, svc := adminFixture()

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.RegistrantStats{
		Total:            3,
		Active:           2,
		Deleted:          1,
		Dia1:             2,
		Dia2:             1,
		BothDays:         1,
		WantsCertificate: 1,
		PaymentPending:   1,
	}, st)
}

func TestAdminExportCSV(t *testing.T) {
	_, svc := adminFixture()

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, false))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "codigo_inscricao", records[0][0])
	assert.Equal(t, "WKS-r1", records[1][0])
	assert.Equal(t, "529.982.247-25", records[1][3])
	assert.Equal(t, "not_requested", records[1][12])

	buf.Reset()
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, true))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestAdminBulkUpdate_PaidImpliesCertificate(t *testing.T) {
	store, svc := adminFixture()

	n, err := svc.BulkUpdate(context.Background(), &domain.BulkRequest{
		IDs:    []string{"r1", "r2"},
		Fields: map[string]any{"status_pagamento": "paid"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{"r1", "r2"} {
		r := store.row(id)
		assert.Equal(t, domain.PaymentPaid, r.StatusPagamento, id)
		assert.True(t, r.QuerCertificado, id)
	}
	require.Len(t, store.updates, 1)
	assert.Equal(t, true, store.updates[0][domain.FieldQuerCertificado])
}

func TestAdminExportCSV_NeutralizesFormulas(t *testing.T) {
	store, svc := adminFixture()
	_, err := store.UpdateByIDs(context.Background(), []string{"r1"}, map[string]any{
		"nome":    "=HYPERLINK(\"http://evil\")",
		"empresa": "@SUM(A1)",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, false))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	var row []string
	for _, rec := range records {
		if rec[0] == "WKS-r1" {
			row = rec
		}
	}
	require.NotNil(t, row)
	assert.Equal(t, "'=HYPERLINK(\"http://evil\")", row[1])
	assert.Equal(t, "'@SUM(A1)", row[6])
	assert.Equal(t, "Prefeitura", records[len(records)-1][6])
}
