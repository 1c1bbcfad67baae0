package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/infrastructure/pdfpages"
	"github.com/kirillkom/document-ledger/internal/testutil/testpdf"
)

func newSplitHarness(t *testing.T) (*harness, *SplitDocumentUseCase) {
	t.Helper()
	h := newHarness(t, realExtractor(), &classifierFake{docType: domain.TypeInvoice})
	return h, NewSplitDocumentUseCase(h.reg, h.cache, pdfpages.NewSplitter(), h.ingest)
}

func TestSplitTenPagePDFIntoFirstThree(t *testing.T) {
	h, splitter := newSplitHarness(t)
	original := h.upload(t, "statement.pdf", testpdf.Pages(10))
	if original.Status != domain.StatusValidated && original.Status != domain.StatusReviewRequired {
		t.Fatalf("expected resting success status, got %s", original.Status)
	}

	created, err := splitter.Split(context.Background(), original.ID, 1, 3, "FirstThree")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	h.pipeline.Wait()

	if created.ID == original.ID {
		t.Fatal("expected a fresh id")
	}
	if created.Name != "FirstThree.pdf" || created.Source != domain.SourceSplit {
		t.Fatalf("unexpected split record %s/%s", created.Name, created.Source)
	}
	file, ok := h.cache.Get(created.ID)
	if !ok {
		t.Fatal("expected split bytes resident")
	}
	pages, err := pdfpages.NewSplitter().PageCount(file.Data)
	if err != nil || pages != 3 {
		t.Fatalf("expected 3 pages, got %d (%v)", pages, err)
	}

	after := h.get(t, created.ID)
	if !strings.Contains(after.Content, "Page 3") || strings.Contains(after.Content, "Page 4") {
		t.Fatalf("unexpected split content %q", after.Content)
	}
	origAfter := h.get(t, original.ID)
	if !containsLog(origAfter, `Splitting pages 1-3 into "FirstThree.pdf"`) || !containsLog(origAfter, `Successfully created "FirstThree.pdf"`) {
		t.Fatalf("missing split logs on original: %+v", origAfter.Logs)
	}
}

func TestSplitRejectsReversedRange(t *testing.T) {
	h, splitter := newSplitHarness(t)
	original := h.upload(t, "statement.pdf", testpdf.Pages(10))
	before := len(h.reg.List())

	_, err := splitter.Split(context.Background(), original.ID, 3, 2, "X")
	if !domain.IsKind(err, domain.ErrRangeError) {
		t.Fatalf("expected range error, got %v", err)
	}
	if after := len(h.reg.List()); after != before {
		t.Fatalf("expected no new document, had %d now %d", before, after)
	}
}

func TestSplitPreconditions(t *testing.T) {
	h, splitter := newSplitHarness(t)
	pdfDoc := h.upload(t, "statement.pdf", testpdf.Pages(2))
	textDoc := h.upload(t, "notes.txt", []byte(longText("notes")))

	if _, err := splitter.Split(context.Background(), textDoc.ID, 1, 1, "part"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for non-pdf, got %v", err)
	}
	if _, err := splitter.Split(context.Background(), pdfDoc.ID, 1, 1, "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank name, got %v", err)
	}
	if _, err := splitter.Split(context.Background(), pdfDoc.ID, 1, 5, "part"); !domain.IsKind(err, domain.ErrRangeError) {
		t.Fatalf("expected range error past last page, got %v", err)
	}
	h.cache.Delete(pdfDoc.ID)
	if _, err := splitter.Split(context.Background(), pdfDoc.ID, 1, 1, "part"); !domain.IsKind(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected resource unavailable, got %v", err)
	}
	if _, err := splitter.Split(context.Background(), "missing", 1, 1, "part"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
