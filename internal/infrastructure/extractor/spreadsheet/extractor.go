package spreadsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// SheetMarker prefixes every sheet in the flattened output.
const SheetMarker = "--- SHEET: %s ---\n"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract flattens every sheet, in workbook order, to CSV under a sheet marker.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile, _ string) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailure, "open workbook", fmt.Errorf("%s: %w", file.Name, err))
	}
	defer wb.Close()

	var out strings.Builder
	for _, sheet := range wb.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtractionFailure, "read sheet", fmt.Errorf("%s/%s: %w", file.Name, sheet, err))
		}

		fmt.Fprintf(&out, SheetMarker, sheet)
		if err := writeCSV(&out, rows); err != nil {
			return "", domain.WrapError(domain.ErrExtractionFailure, "render sheet", err)
		}
		out.WriteString("\n")
	}
	return out.String(), nil
}

// writeCSV pads ragged rows to the widest row so columns stay aligned.
func writeCSV(out *strings.Builder, rows [][]string) error {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	w := csv.NewWriter(out)
	for _, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		if err := w.Write(padded); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
