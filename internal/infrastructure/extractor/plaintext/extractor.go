package plaintext

import (
	"context"
	"strings"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the payload as text. Invalid UTF-8 sequences decode to
// U+FFFD and an empty file yields empty text; the content rule downstream
// decides what needs review.
func (e *Extractor) Extract(_ context.Context, file domain.SourceFile, _ string) (string, error) {
	return strings.ToValidUTF8(string(file.Data), "\uFFFD"), nil
}
