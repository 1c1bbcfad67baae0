package pdfpages

import (
	"errors"
	"testing"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/testutil/testpdf"
)

func TestPageCount(t *testing.T) {
	n, err := NewSplitter().PageCount(testpdf.Pages(10))
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 10 {
		t.Fatalf("PageCount() = %d, want 10", n)
	}
}

func TestExtractPagesKeepsRange(t *testing.T) {
	s := NewSplitter()
	out, err := s.ExtractPages(testpdf.Pages(10), 1, 3)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}
	n, err := s.PageCount(out)
	if err != nil {
		t.Fatalf("PageCount(out) error = %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 pages, got %d", n)
	}
}

func TestExtractSinglePage(t *testing.T) {
	s := NewSplitter()
	out, err := s.ExtractPages(testpdf.Pages(4), 2, 2)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}
	if n, _ := s.PageCount(out); n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
}

func TestExtractPagesRejectsBadRange(t *testing.T) {
	raw := testpdf.Pages(10)
	s := NewSplitter()

	cases := []struct {
		from, to int
	}{
		{3, 2},
		{0, 2},
		{2, 11},
	}
	for _, tc := range cases {
		out, err := s.ExtractPages(raw, tc.from, tc.to)
		if !errors.Is(err, domain.ErrRangeError) {
			t.Fatalf("ExtractPages(%d,%d) expected range error, got %v", tc.from, tc.to, err)
		}
		if out != nil {
			t.Fatalf("ExtractPages(%d,%d) returned bytes on error", tc.from, tc.to)
		}
	}
}
