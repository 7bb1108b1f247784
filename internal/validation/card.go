// Package validation содержит функции валидации входных данных.
package validation

import (
	"strconv"
	"strings"
	"unicode"
)

// IsValidCardNumber проверяет номер карты по алгоритму Луна. Пробелы
// между группами цифр допускаются. Платёж не проводится, проверяется
// только форма.
func IsValidCardNumber(number string) bool {
	number = strings.ReplaceAll(number, " ", "")
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// IsValidExpiry проверяет срок действия карты в формате ММ/ГГ.
func IsValidExpiry(expiry string) bool {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}

	if _, err := strconv.Atoi(parts[1]); err != nil {
		return false
	}

	return true
}

// IsValidCVV проверяет код безопасности карты: три цифры.
func IsValidCVV(cvv string) bool {
	if len(cvv) != 3 {
		return false
	}
	for _, ch := range cvv {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// IsValidHolder проверяет имя держателя карты: непустая строка.
func IsValidHolder(holder string) bool {
	return strings.TrimSpace(holder) != ""
}
