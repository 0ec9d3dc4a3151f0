// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// knownDeities перечисляет божеств, для которых доступны пуджи и подношения.
var knownDeities = map[string]struct{}{
	"ganesha": {},
	"shiva":   {},
	"krishna": {},
	"hanuman": {},
	"durga":   {},
	"lakshmi": {},
}

// IsValidDeityID проверяет, что идентификатор божества известен сервису.
func IsValidDeityID(deityID string) bool {
	_, ok := knownDeities[deityID]
	return ok
}

// IsValidOfferingAmount проверяет сумму подношения в наименьших единицах валюты.
func IsValidOfferingAmount(amount int64) bool {
	return amount >= 1
}

// IsValidStepID проверяет идентификатор шага пуджи: непустая строка из
// строчных латинских букв, цифр и дефисов.
func IsValidStepID(stepID string) bool {
	if stepID == "" {
		return false
	}

	for _, ch := range stepID {
		if !unicode.IsLower(ch) && !unicode.IsDigit(ch) && ch != '-' && ch != '_' {
			return false
		}
	}

	return true
}

// NormalizePage приводит параметры пагинации к допустимым значениям.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
