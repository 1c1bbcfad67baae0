package usecase

import (
	"unicode/utf8"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

const (
	DefaultMinContentLength = 50
	lowContentReason        = "Low content detected, please verify."
)

// Validate decides the resting status of extracted content. Length is counted in runes.
func Validate(content string, minLength int) (domain.DocumentStatus, string) {
	if minLength <= 0 {
		minLength = DefaultMinContentLength
	}
	if utf8.RuneCountInString(content) < minLength {
		return domain.StatusReviewRequired, lowContentReason
	}
	return domain.StatusValidated, ""
}
