package domain

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ============================================================
// Brazilian document helpers (CPF, CEP, phone)
// ============================================================

// DefaultPhoneRegion is used when a phone number has no country prefix.
const DefaultPhoneRegion = "BR"

// OnlyDigits strips every non-digit rune from s.
func OnlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// ValidCPF checks length, repeated digits and both check digits.
func ValidCPF(cpf string) bool {
	cpf = OnlyDigits(cpf)
	if len(cpf) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < len(cpf); i++ {
		if cpf[i] != cpf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	return cpfCheckDigit(cpf[:9]) == cpf[9] && cpfCheckDigit(cpf[:10]) == cpf[10]
}

func cpfCheckDigit(prefix string) byte {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (weight - i)
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + 11 - rem)
}

// FormatCPF renders an 11-digit CPF as 000.000.000-00.
func FormatCPF(cpf string) string {
	d := OnlyDigits(cpf)
	if len(d) != 11 {
		return cpf
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[:3], d[3:6], d[6:9], d[9:11])
}

// NormalizeCEP returns the postal code as 00000-000, or false when it has
// not exactly eight digits.
func NormalizeCEP(cep string) (string, bool) {
	d := OnlyDigits(cep)
	if len(d) != 8 {
		return "", false
	}
	return d[:5] + "-" + d[5:], true
}

// NormalizePhone parses raw in the BR region and returns the national
// significant number (area code + subscriber) as digits.
func NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone: %w", err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number: %s", raw)
	}
	return phonenumbers.GetNationalSignificantNumber(num), nil
}

// ValidEmail reports whether s is a bare address (no display name).
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@")+1:], ".")
}
