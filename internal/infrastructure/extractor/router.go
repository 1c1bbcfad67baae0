package extractor

import (
	"context"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
)

// Router dispatches a file to the extractor registered for its kind.
type Router struct {
	byKind   map[domain.FileKind]ports.TextExtractor
	fallback ports.TextExtractor
}

func NewRouter(spreadsheet, pdf, plain ports.TextExtractor) *Router {
	return &Router{
		byKind: map[domain.FileKind]ports.TextExtractor{
			domain.KindSpreadsheet: spreadsheet,
			domain.KindPDF:         pdf,
			domain.KindPlain:       plain,
		},
		fallback: plain,
	}
}

func (r *Router) Extract(ctx context.Context, file domain.SourceFile, password string) (string, error) {
	ex, ok := r.byKind[file.Kind()]
	if !ok || ex == nil {
		ex = r.fallback
	}
	return ex.Extract(ctx, file, password)
}
