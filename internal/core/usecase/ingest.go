package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

const duplicateReason = "Potential duplicate of existing file."

// Hasher fingerprints raw bytes and derives document ids from the fingerprint.
type Hasher interface {
	Hash(data []byte) string
	DocumentID(name, hash string) string
}

type pipelineStarter interface {
	Start(ctx context.Context, documentID, password string)
}

// UploadRecorder counts admissions by result.
type UploadRecorder interface {
	RecordUpload(result string)
}

type IngestDocumentUseCase struct {
	registry *registry.Registry
	cache    ports.ByteCache
	hasher   Hasher
	pipeline pipelineStarter
	recorder UploadRecorder
	maxBytes int64
}

func NewIngestDocumentUseCase(
	reg *registry.Registry,
	cache ports.ByteCache,
	hasher Hasher,
	pipeline pipelineStarter,
	recorder UploadRecorder,
	maxBytes int64,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		registry: reg,
		cache:    cache,
		hasher:   hasher,
		pipeline: pipeline,
		recorder: recorder,
		maxBytes: maxBytes,
	}
}

// Upload admits a file. Identical name and bytes resolve to the existing record;
// identical bytes under a new name are flagged as a duplicate and not processed.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	source domain.DocumentSource,
	body io.Reader,
) (*domain.Document, error) {
	name := cleanFilename(filename)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}
	if source == "" {
		source = domain.SourceUpload
	}
	if !source.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unknown source %q", source))
	}

	data, err := uc.read(body)
	if err != nil {
		return nil, err
	}

	hash := uc.hasher.Hash(data)
	now := uc.registry.Now()
	doc := &domain.Document{
		ID:          uc.hasher.DocumentID(name, hash),
		Name:        name,
		Size:        int64(len(data)),
		MimeType:    mimeType,
		ContentHash: hash,
		UploadedAt:  now,
		Type:        domain.TypeOther,
		Status:      domain.StatusUploaded,
		Source:      source,
		Logs:        []domain.LogEntry{{Timestamp: now, Message: "File added to queue."}},
	}

	stored, created, err := uc.registry.Admit(ctx, doc, func(d, original *domain.Document) {
		d.Status = domain.StatusReviewRequired
		d.IsDuplicate = true
		d.DuplicateOf = original.Name
		d.ExceptionReason = duplicateReason
		d.Logs = append(d.Logs, domain.LogEntry{Timestamp: now, Message: "File flagged as potential duplicate."})
	})
	if err != nil {
		return nil, fmt.Errorf("admit document: %w", err)
	}

	uc.cache.Put(stored.ID, domain.SourceFile{Name: name, MimeType: mimeType, Data: data})

	result := "created"
	switch {
	case !created:
		result = "existing"
	case stored.IsDuplicate:
		result = "duplicate"
		slog.Info("document_flagged_duplicate", "document_id", stored.ID, "duplicate_of", stored.DuplicateOf)
	default:
		uc.pipeline.Start(ctx, stored.ID, "")
	}
	if uc.recorder != nil {
		uc.recorder.RecordUpload(result)
	}
	slog.Info("document_uploaded", "document_id", stored.ID, "source", source, "size", stored.Size, "result", result)
	return stored, nil
}

// Remove deletes the record and its resident bytes. Flagged duplicates of the
// removed document stay flagged.
func (uc *IngestDocumentUseCase) Remove(ctx context.Context, documentID string) error {
	if err := uc.registry.Remove(ctx, documentID); err != nil {
		return err
	}
	uc.cache.Delete(documentID)
	slog.Info("document_removed", "document_id", documentID)
	return nil
}

func (uc *IngestDocumentUseCase) read(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("body is required"))
	}
	if uc.maxBytes > 0 {
		body = io.LimitReader(body, uc.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if uc.maxBytes > 0 && int64(len(data)) > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("file exceeds %d bytes", uc.maxBytes))
	}
	return data, nil
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
