// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidEAN13 проверяет штрихкод EAN-13 по контрольной цифре.
func IsValidEAN13(code string) bool {
	if len(code) != 13 {
		return false
	}

	sum := 0
	triple := false

	// Обход справа налево начиная с контрольной цифры: веса 1, 3, 1, 3...
	for i := len(code) - 1; i >= 0; i-- {
		ch := rune(code[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if triple {
			digit *= 3
		}
		sum += digit
		triple = !triple
	}

	return sum%10 == 0
}
