package domain_test

import (
	"testing"

	"github.com/boddenberg/workshop-registration-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCPF(t *testing.T) {
	tests := []struct {
		name string
		cpf  string
		want bool
	}{
		{"valid digits", "52998224725", true},
		{"valid formatted", "529.982.247-25", true},
		{"valid second sample", "11144477735", true},
		{"wrong first check digit", "52998224715", false},
		{"wrong second check digit", "52998224726", false},
		{"repeated digits", "11111111111", false},
		{"too short", "5299822472", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidCPF(tt.cpf))
		})
	}
}

func TestFormatCPF(t *testing.T) {
	assert.Equal(t, "529.982.247-25", domain.FormatCPF("52998224725"))
	assert.Equal(t, "123", domain.FormatCPF("123"))
}

func TestNormalizeCEP(t *testing.T) {
	got, ok := domain.NormalizeCEP("01310100")
	require.True(t, ok)
	assert.Equal(t, "01310-100", got)

	got, ok = domain.NormalizeCEP("01310-100")
	require.True(t, ok)
	assert.Equal(t, "01310-100", got)

	_, ok = domain.NormalizeCEP("0131-100")
	assert.False(t, ok)
}

func TestNormalizePhone(t *testing.T) {
	got, err := domain.NormalizePhone("(11) 98765-4321")
	require.NoError(t, err)
	assert.Equal(t, "11987654321", got)

	got, err = domain.NormalizePhone("+55 21 98765-4321")
	require.NoError(t, err)
	assert.Equal(t, "21987654321", got)

	_, err = domain.NormalizePhone("123")
	assert.Error(t, err)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, domain.ValidEmail("ana@example.com"))
	assert.False(t, domain.ValidEmail("Ana <ana@example.com>"))
	assert.False(t, domain.ValidEmail("ana@localhost"))
	assert.False(t, domain.ValidEmail("ana"))
}

func TestOnlyDigits(t *testing.T) {
	assert.Equal(t, "52998224725", domain.OnlyDigits("529.982.247-25"))
	assert.Equal(t, "", domain.OnlyDigits("abc"))
}
