package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

const (
	LedgerSheet   = "Ledger"
	MappingsSheet = "Mappings"
)

var ledgerHeader = []any{"Date", "Entry ID", "Narration", "Debit", "Credit", "Amount", "Formatted", "Source Document"}

// Exporter renders the ledger and its account mappings into a workbook.
type Exporter struct {
	currency string
}

func NewExporter(currency string) *Exporter {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if money.GetCurrency(currency) == nil {
		currency = money.INR
	}
	return &Exporter{currency: currency}
}

func (e *Exporter) ExportLedger(entries []domain.LedgerEntry, mappings []domain.LedgerMapping) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &ledgerHeader); err != nil {
		return nil, fmt.Errorf("write ledger header: %w", err)
	}

	names := accountNames(mappings)
	total := decimal.Zero
	for i, entry := range entries {
		amount, _ := entry.Amount.Round(2).Float64()
		row := []any{
			entry.Date,
			entry.ID,
			entry.Narration,
			describe(entry.DebitAccount, names),
			describe(entry.CreditAccount, names),
			amount,
			e.format(entry.Amount),
			entry.SourceDocumentID,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write ledger row %d: %w", i+1, err)
		}
		total = total.Add(entry.Amount)
	}

	totalRow := len(entries) + 2
	totalAmount, _ := total.Round(2).Float64()
	footer := []any{"Total", "", "", "", "", totalAmount, e.format(total), ""}
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetSheetRow(LedgerSheet, cell, &footer); err != nil {
		return nil, fmt.Errorf("write ledger total: %w", err)
	}

	if _, err := f.NewSheet(MappingsSheet); err != nil {
		return nil, fmt.Errorf("create mappings sheet: %w", err)
	}
	header := []any{"Account", "Ledger Code"}
	if err := f.SetSheetRow(MappingsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write mappings header: %w", err)
	}
	for i, m := range mappings {
		row := []any{string(m.Account), m.LedgerCode}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(MappingsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write mapping row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) format(amount decimal.Decimal) string {
	minor := amount.Shift(2).Round(0).IntPart()
	return money.New(minor, e.currency).Display()
}

func accountNames(mappings []domain.LedgerMapping) map[string]string {
	out := make(map[string]string, len(mappings))
	for _, m := range domain.DefaultLedgerMappings() {
		out[m.LedgerCode] = string(m.Account)
	}
	for _, m := range mappings {
		out[m.LedgerCode] = string(m.Account)
	}
	return out
}

func describe(code string, names map[string]string) string {
	if name, ok := names[code]; ok {
		return code + " " + name
	}
	return code
}
