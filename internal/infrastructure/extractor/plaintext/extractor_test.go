package plaintext

import (
	"context"
	"testing"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

func TestExtractReturnsRawText(t *testing.T) {
	raw := "date,amount\n2025-01-01,100\n"
	got, err := NewExtractor().Extract(context.Background(), domain.SourceFile{Name: "a.csv", Data: []byte(raw)}, "")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != raw {
		t.Fatalf("Extract() = %q, want %q", got, raw)
	}
}

func TestExtractDecodesInvalidUTF8Lossily(t *testing.T) {
	latin1 := []byte("caf\xe9,12\n")
	got, err := NewExtractor().Extract(context.Background(), domain.SourceFile{Name: "a.csv", Data: latin1}, "")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "caf\uFFFD,12\n" {
		t.Fatalf("Extract() = %q", got)
	}
}

func TestExtractEmptyFileYieldsEmptyText(t *testing.T) {
	got, err := NewExtractor().Extract(context.Background(), domain.SourceFile{Name: "a.txt"}, "")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "" {
		t.Fatalf("Extract() = %q, want empty", got)
	}
}
