// Package pdfpages renders page ranges of a PDF into standalone PDFs.
package pdfpages

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

type Splitter struct{}

func NewSplitter() *Splitter {
	return &Splitter{}
}

func (s *Splitter) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), relaxedConfiguration())
	if err != nil {
		return 0, domain.WrapError(domain.ErrExtractionFailure, "count pdf pages", err)
	}
	return n, nil
}

// ExtractPages keeps pages fromPage..toPage (1-based, inclusive) and drops the rest.
func (s *Splitter) ExtractPages(data []byte, fromPage, toPage int) ([]byte, error) {
	total, err := s.PageCount(data)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePageRange(fromPage, toPage, total); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &out, []string{selection(fromPage, toPage)}, relaxedConfiguration()); err != nil {
		return nil, domain.WrapError(domain.ErrExtractionFailure, "trim pdf pages", err)
	}
	return out.Bytes(), nil
}

func selection(fromPage, toPage int) string {
	if fromPage == toPage {
		return strconv.Itoa(fromPage)
	}
	return fmt.Sprintf("%d-%d", fromPage, toPage)
}

func relaxedConfiguration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}
