package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

func TestValidateCountsRunes(t *testing.T) {
	status, reason := Validate(strings.Repeat("₹", 50), 50)
	if status != domain.StatusValidated || reason != "" {
		t.Fatalf("expected validated for 50 runes, got %s %q", status, reason)
	}

	status, reason = Validate(strings.Repeat("₹", 49), 50)
	if status != domain.StatusReviewRequired || reason != "Low content detected, please verify." {
		t.Fatalf("expected review for 49 runes, got %s %q", status, reason)
	}
}

func TestValidateUsesDefaultThreshold(t *testing.T) {
	if status, _ := Validate(strings.Repeat("a", 49), 0); status != domain.StatusReviewRequired {
		t.Fatalf("expected default threshold 50, got %s", status)
	}
	if status, _ := Validate("abc", 3); status != domain.StatusValidated {
		t.Fatalf("expected custom threshold honoured, got %s", status)
	}
}
