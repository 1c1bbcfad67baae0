package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

const manifestFileName = "manifest.json"

type EvidenceBundleUseCase struct {
	registry *registry.Registry
}

func NewEvidenceBundleUseCase(reg *registry.Registry) *EvidenceBundleUseCase {
	return &EvidenceBundleUseCase{registry: reg}
}

// BundleFileName names the archive after the day it was built.
func BundleFileName(at time.Time) string {
	return fmt.Sprintf("Evidence_Bundle_%s.zip", at.Format(domain.LedgerDateLayout))
}

// Bundle writes <name>.txt for every known id plus manifest.json. Unknown ids
// are skipped.
func (uc *EvidenceBundleUseCase) Bundle(ctx context.Context, ids []string) (*domain.GeneratedFile, []byte, domain.BundleManifest, error) {
	if len(ids) == 0 {
		return nil, nil, nil, domain.WrapError(domain.ErrInvalidInput, "build bundle", errors.New("at least one document id is required"))
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	manifest := domain.BundleManifest{}
	used := map[string]int{}

	for _, id := range ids {
		if _, seen := manifest[id]; seen {
			continue
		}
		doc, err := uc.registry.Get(id)
		if err != nil {
			slog.Warn("bundle_document_skipped", "document_id", id, "error", err)
			continue
		}

		entryName := uniqueEntryName(doc.Name+".txt", used)
		w, err := archive.Create(entryName)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create bundle entry %s: %w", entryName, err)
		}
		if _, err := w.Write([]byte(doc.Content)); err != nil {
			return nil, nil, nil, fmt.Errorf("write bundle entry %s: %w", entryName, err)
		}
		manifest[doc.ID] = domain.ManifestEntry{
			Name:   doc.Name,
			Type:   doc.Type,
			Size:   doc.Size,
			SHA256: doc.ContentHash,
		}
		if err := uc.registry.AppendLog(ctx, doc.ID, "Added to evidence bundle."); err != nil {
			slog.Warn("bundle_log_failed", "document_id", doc.ID, "error", err)
		}
	}

	rawManifest, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode manifest: %w", err)
	}
	w, err := archive.Create(manifestFileName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := w.Write(rawManifest); err != nil {
		return nil, nil, nil, fmt.Errorf("write manifest entry: %w", err)
	}
	if err := archive.Close(); err != nil {
		return nil, nil, nil, fmt.Errorf("close bundle: %w", err)
	}

	file := &domain.GeneratedFile{
		FileName: BundleFileName(uc.registry.Now()),
		FileType: "application/zip",
	}
	slog.Info("evidence_bundle_built", "documents", len(manifest), "bytes", buf.Len())
	return file, buf.Bytes(), manifest, nil
}

func uniqueEntryName(name string, used map[string]int) string {
	used[name]++
	if n := used[name]; n > 1 {
		return fmt.Sprintf("%d_%s", n, name)
	}
	return name
}
