package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/infrastructure/hashing"
)

func TestBundleWritesContentAndManifest(t *testing.T) {
	h := newHarness(t, extractorFunc(func(file domain.SourceFile, _ string) (string, error) {
		return longText(file.Name), nil
	}), &classifierFake{docType: domain.TypeInvoice})
	a := h.upload(t, "a.csv", []byte("alpha"))
	b := h.upload(t, "b.csv", []byte("beta"))

	file, raw, manifest, err := NewEvidenceBundleUseCase(h.reg).Bundle(context.Background(), []string{a.ID, "unknown", b.ID})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	if file.FileName != "Evidence_Bundle_2025-03-14.zip" || file.FileType != "application/zip" {
		t.Fatalf("unexpected file descriptor %+v", file)
	}
	if len(manifest) != 2 {
		t.Fatalf("expected 2 manifest entries, got %+v", manifest)
	}
	if manifest[a.ID].SHA256 != hashing.Hash([]byte("alpha")) || manifest[a.ID].Type != domain.TypeInvoice || manifest[a.ID].Size != 5 {
		t.Fatalf("unexpected manifest entry %+v", manifest[a.ID])
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		_ = rc.Close()
		files[f.Name] = string(body)
	}
	if files["a.csv.txt"] != longText("a.csv") || files["b.csv.txt"] != longText("b.csv") {
		t.Fatalf("unexpected archive content %v", files)
	}

	var decoded domain.BundleManifest
	if err := json.Unmarshal([]byte(files["manifest.json"]), &decoded); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if decoded[b.ID].Name != "b.csv" {
		t.Fatalf("unexpected archived manifest %+v", decoded)
	}
	if !containsLog(h.get(t, a.ID), "Added to evidence bundle.") {
		t.Fatal("expected bundle log on included document")
	}
}

func TestBundleRequiresIDs(t *testing.T) {
	h := newHarness(t, staticExtractor(""), &classifierFake{})
	if _, _, _, err := NewEvidenceBundleUseCase(h.reg).Bundle(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBundleFileName(t *testing.T) {
	if got := BundleFileName(time.Date(2024, 12, 1, 23, 0, 0, 0, time.UTC)); got != "Evidence_Bundle_2024-12-01.zip" {
		t.Fatalf("unexpected name %s", got)
	}
}

func TestUniqueEntryName(t *testing.T) {
	used := map[string]int{}
	if uniqueEntryName("a.txt", used) != "a.txt" || uniqueEntryName("a.txt", used) != "2_a.txt" {
		t.Fatal("expected collision suffix")
	}
}
