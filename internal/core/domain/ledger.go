package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerDateLayout is the calendar date format used on ledger entries.
const LedgerDateLayout = "2006-01-02"

type LedgerEntry struct {
	ID               string          `json:"id"`
	Date             string          `json:"date"`
	Narration        string          `json:"narration"`
	DebitAccount     string          `json:"debit_account"`
	CreditAccount    string          `json:"credit_account"`
	Amount           decimal.Decimal `json:"amount"`
	SourceDocumentID string          `json:"source_document_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

type LedgerAccount string

const (
	AccountSales       LedgerAccount = "Sales"
	AccountPurchases   LedgerAccount = "Purchases"
	AccountIGSTPayable LedgerAccount = "IGST Payable"
	AccountCGSTPayable LedgerAccount = "CGST Payable"
	AccountSGSTPayable LedgerAccount = "SGST Payable"
	AccountReceivable  LedgerAccount = "Accounts Receivable"
	AccountPayable     LedgerAccount = "Accounts Payable"
)

type LedgerMapping struct {
	Account    LedgerAccount `json:"account" yaml:"account"`
	LedgerCode string        `json:"ledger_code" yaml:"ledger_code"`
}

// DefaultLedgerMappings returns a fresh copy of the built-in chart of accounts.
func DefaultLedgerMappings() []LedgerMapping {
	return []LedgerMapping{
		{Account: AccountSales, LedgerCode: "4000"},
		{Account: AccountPurchases, LedgerCode: "5000"},
		{Account: AccountIGSTPayable, LedgerCode: "2101"},
		{Account: AccountCGSTPayable, LedgerCode: "2102"},
		{Account: AccountSGSTPayable, LedgerCode: "2103"},
		{Account: AccountReceivable, LedgerCode: "1200"},
		{Account: AccountPayable, LedgerCode: "2000"},
	}
}

// LedgerCode resolves an account against mappings, then against the defaults.
func LedgerCode(mappings []LedgerMapping, account LedgerAccount) string {
	for _, m := range mappings {
		if m.Account == account && m.LedgerCode != "" {
			return m.LedgerCode
		}
	}
	for _, m := range DefaultLedgerMappings() {
		if m.Account == account {
			return m.LedgerCode
		}
	}
	return ""
}

// IsPurchaseSide reports whether a document type books against payables.
func (t DocumentType) IsPurchaseSide() bool {
	switch t {
	case TypePurchaseRegister, TypePurchaseOrder, TypeGoodsReceiptNote, TypeGSTR2B:
		return true
	default:
		return false
	}
}

// PostOptions overrides posting defaults. Empty fields fall back to the
// configured amount and today's date.
type PostOptions struct {
	Amount string `json:"amount,omitempty"`
	Date   string `json:"date,omitempty"`
}
