// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"

	"golang.org/x/text/currency"
)

const (
	publicIDLength    = 21
	secureTokenLength = 33
)

// IsValidPublicID проверяет, что строка похожа на публичный идентификатор:
// 21 символ из алфавита A-Za-z0-9_-.
func IsValidPublicID(id string) bool {
	return len(id) == publicIDLength && isURLSafe(id)
}

// IsValidSecureToken проверяет форму секретного токена пользователя.
func IsValidSecureToken(token string) bool {
	return len(token) == secureTokenLength && isURLSafe(token)
}

// IsValidCurrencyCode проверяет, что код является известным кодом валюты ISO 4217.
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	_, err := currency.ParseISO(strings.ToUpper(code))
	return err == nil
}

func isURLSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
