package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

type FixSuggestionUseCase struct {
	registry  *registry.Registry
	suggester ports.FixSuggester
}

func NewFixSuggestionUseCase(reg *registry.Registry, suggester ports.FixSuggester) *FixSuggestionUseCase {
	return &FixSuggestionUseCase{registry: reg, suggester: suggester}
}

// SuggestFix stores advisory remediation text on a document in Error or ReviewRequired.
func (uc *FixSuggestionUseCase) SuggestFix(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.registry.Get(documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusError && doc.Status != domain.StatusReviewRequired {
		return nil, domain.WrapError(domain.ErrInvalidInput, "suggest fix", fmt.Errorf("document %s is %s", documentID, doc.Status))
	}

	suggestion, err := uc.suggester.SuggestFix(ctx, doc)
	if err != nil {
		slog.Warn("fix_suggestion_failed", "document_id", documentID, "error", err)
		return nil, err
	}
	suggestion = strings.TrimSpace(suggestion)

	return uc.registry.Update(ctx, documentID, func(d *domain.Document) error {
		d.FixSuggestion = suggestion
		d.Logs = append(d.Logs, domain.LogEntry{Timestamp: uc.registry.Now(), Message: "Fix suggestion generated."})
		return nil
	})
}
