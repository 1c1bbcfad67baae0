package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

type SplitDocumentUseCase struct {
	registry *registry.Registry
	cache    ports.ByteCache
	splitter ports.PageSplitter
	ingest   *IngestDocumentUseCase
}

func NewSplitDocumentUseCase(
	reg *registry.Registry,
	cache ports.ByteCache,
	splitter ports.PageSplitter,
	ingest *IngestDocumentUseCase,
) *SplitDocumentUseCase {
	return &SplitDocumentUseCase{
		registry: reg,
		cache:    cache,
		splitter: splitter,
		ingest:   ingest,
	}
}

// Split renders pages fromPage..toPage of a resident PDF into a new document
// admitted through the normal upload path.
func (uc *SplitDocumentUseCase) Split(ctx context.Context, documentID string, fromPage, toPage int, newName string) (*domain.Document, error) {
	doc, err := uc.registry.Get(documentID)
	if err != nil {
		return nil, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "split document", errors.New("new name is required"))
	}
	file, ok := uc.cache.Get(documentID)
	if !ok {
		return nil, domain.WrapError(domain.ErrResourceUnavailable, "split document", fmt.Errorf("bytes for %s are not resident", documentID))
	}
	if file.Kind() != domain.KindPDF {
		return nil, domain.WrapError(domain.ErrInvalidInput, "split document", fmt.Errorf("%s is not a pdf", doc.Name))
	}

	total, err := uc.splitter.PageCount(file.Data)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePageRange(fromPage, toPage, total); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(newName), ".pdf") {
		newName += ".pdf"
	}

	uc.log(ctx, documentID, fmt.Sprintf("Splitting pages %d-%d into %q", fromPage, toPage, newName))
	data, err := uc.splitter.ExtractPages(file.Data, fromPage, toPage)
	if err != nil {
		uc.log(ctx, documentID, fmt.Sprintf("Splitting failed: %s", err.Error()))
		return nil, err
	}

	created, err := uc.ingest.Upload(ctx, newName, "application/pdf", domain.SourceSplit, bytes.NewReader(data))
	if err != nil {
		uc.log(ctx, documentID, fmt.Sprintf("Splitting failed: %s", err.Error()))
		return nil, err
	}
	uc.log(ctx, documentID, fmt.Sprintf("Successfully created %q", newName))
	slog.Info("document_split", "document_id", documentID, "new_document_id", created.ID, "from", fromPage, "to", toPage)
	return created, nil
}

func (uc *SplitDocumentUseCase) log(ctx context.Context, documentID, message string) {
	if err := uc.registry.AppendLog(ctx, documentID, message); err != nil {
		slog.Warn("split_log_failed", "document_id", documentID, "error", err)
	}
}
