package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded         DocumentStatus = "uploaded"
	StatusExtractingText   DocumentStatus = "extracting_text"
	StatusClassifying      DocumentStatus = "classifying"
	StatusValidating       DocumentStatus = "validating"
	StatusValidated        DocumentStatus = "validated"
	StatusReviewRequired   DocumentStatus = "review_required"
	StatusAwaitingPassword DocumentStatus = "awaiting_password"
	StatusUnlocking        DocumentStatus = "unlocking"
	StatusInvalidPassword  DocumentStatus = "invalid_password"
	StatusError            DocumentStatus = "error"
	StatusPosted           DocumentStatus = "posted"
)

var transitions = map[DocumentStatus][]DocumentStatus{
	StatusUploaded:         {StatusExtractingText},
	StatusExtractingText:   {StatusClassifying, StatusAwaitingPassword, StatusInvalidPassword, StatusError},
	StatusClassifying:      {StatusValidating},
	StatusValidating:       {StatusValidated, StatusReviewRequired},
	StatusAwaitingPassword: {StatusUnlocking},
	StatusInvalidPassword:  {StatusUnlocking},
	StatusUnlocking:        {StatusExtractingText},
	StatusValidated:        {StatusPosted},
	StatusError:            {StatusUploaded},
}

// CanTransition reports whether the document state machine allows from -> to.
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition for moves the machine does not allow.
func CheckTransition(from, to DocumentStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return WrapError(ErrIllegalTransition, "check transition", fmt.Errorf("%s -> %s", from, to))
}

// IsResting reports whether the pipeline has stopped and waits for a user action.
func (s DocumentStatus) IsResting() bool {
	switch s {
	case StatusValidated, StatusReviewRequired, StatusAwaitingPassword, StatusInvalidPassword, StatusError:
		return true
	default:
		return false
	}
}

// IsLocked reports whether the document waits for a password.
func (s DocumentStatus) IsLocked() bool {
	return s == StatusAwaitingPassword || s == StatusInvalidPassword
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusExtractingText, StatusClassifying, StatusValidating,
		StatusValidated, StatusReviewRequired, StatusAwaitingPassword, StatusUnlocking,
		StatusInvalidPassword, StatusError, StatusPosted:
		return true
	default:
		return false
	}
}

type DocumentType string

const (
	TypeInvoice          DocumentType = "Invoice"
	TypeBankStatement    DocumentType = "Bank Statement"
	TypeGSTFiling        DocumentType = "GST Filing"
	TypeTDSCertificate   DocumentType = "TDS Certificate"
	TypePayrollRegister  DocumentType = "Payroll Register"
	TypeContract         DocumentType = "Contract/Agreement"
	TypeSalesRegister    DocumentType = "Sales Register"
	TypePurchaseRegister DocumentType = "Purchase Register"
	TypePurchaseOrder    DocumentType = "Purchase Order"
	TypeGoodsReceiptNote DocumentType = "Goods Receipt Note"
	TypeGSTR2B           DocumentType = "GSTR-2B"
	TypeJournalAndLedger DocumentType = "Journal & Ledger"
	TypeOther            DocumentType = "Other"
)

// DocumentTypes lists the closed classification vocabulary in display order.
var DocumentTypes = []DocumentType{
	TypeInvoice,
	TypeBankStatement,
	TypeGSTFiling,
	TypeTDSCertificate,
	TypePayrollRegister,
	TypeContract,
	TypeSalesRegister,
	TypePurchaseRegister,
	TypePurchaseOrder,
	TypeGoodsReceiptNote,
	TypeGSTR2B,
	TypeJournalAndLedger,
	TypeOther,
}

func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if known == t {
			return true
		}
	}
	return false
}

// ParseDocumentType maps free text onto the closed vocabulary, falling back to Other.
func ParseDocumentType(raw string) DocumentType {
	for _, t := range DocumentTypes {
		if string(t) == raw {
			return t
		}
	}
	return TypeOther
}

type DocumentSource string

const (
	SourceUpload DocumentSource = "upload"
	SourceEmail  DocumentSource = "email"
	SourceScan   DocumentSource = "scan"
	SourceSplit  DocumentSource = "split"
)

func (s DocumentSource) Valid() bool {
	switch s {
	case SourceUpload, SourceEmail, SourceScan, SourceSplit:
		return true
	default:
		return false
	}
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

type Document struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Content              string         `json:"content"`
	Size                 int64          `json:"size"`
	MimeType             string         `json:"mime_type"`
	ContentHash          string         `json:"sha256"`
	UploadedAt           time.Time      `json:"uploaded_at"`
	Type                 DocumentType   `json:"type"`
	Status               DocumentStatus `json:"status"`
	Logs                 []LogEntry     `json:"logs"`
	Version              int            `json:"version"`
	Source               DocumentSource `json:"source"`
	IsDuplicate          bool           `json:"is_duplicate,omitempty"`
	DuplicateOf          string         `json:"duplicate_of,omitempty"`
	ExceptionReason      string         `json:"exception_reason,omitempty"`
	FixSuggestion        string         `json:"fix_suggestion,omitempty"`
	PostedLedgerEntryIDs []string       `json:"posted_ledger_entry_ids"`
}

// Clone returns a deep copy safe to hand out of the registry.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Logs = append([]LogEntry(nil), d.Logs...)
	out.PostedLedgerEntryIDs = append([]string(nil), d.PostedLedgerEntryIDs...)
	return &out
}

// Metadata strips the extracted content so the record can be persisted cheaply.
func (d *Document) Metadata() DocumentMetadata {
	return DocumentMetadata{
		ID:                   d.ID,
		Name:                 d.Name,
		Size:                 d.Size,
		MimeType:             d.MimeType,
		ContentHash:          d.ContentHash,
		UploadedAt:           d.UploadedAt,
		Type:                 d.Type,
		Status:               d.Status,
		Logs:                 append([]LogEntry(nil), d.Logs...),
		Version:              d.Version,
		Source:               d.Source,
		IsDuplicate:          d.IsDuplicate,
		DuplicateOf:          d.DuplicateOf,
		ExceptionReason:      d.ExceptionReason,
		FixSuggestion:        d.FixSuggestion,
		PostedLedgerEntryIDs: append([]string(nil), d.PostedLedgerEntryIDs...),
	}
}

// DocumentMetadata is the durable, content-free projection of a Document.
type DocumentMetadata struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Size                 int64          `json:"size"`
	MimeType             string         `json:"mime_type"`
	ContentHash          string         `json:"sha256"`
	UploadedAt           time.Time      `json:"uploaded_at"`
	Type                 DocumentType   `json:"type"`
	Status               DocumentStatus `json:"status"`
	Logs                 []LogEntry     `json:"logs"`
	Version              int            `json:"version"`
	Source               DocumentSource `json:"source"`
	IsDuplicate          bool           `json:"is_duplicate,omitempty"`
	DuplicateOf          string         `json:"duplicate_of,omitempty"`
	ExceptionReason      string         `json:"exception_reason,omitempty"`
	FixSuggestion        string         `json:"fix_suggestion,omitempty"`
	PostedLedgerEntryIDs []string       `json:"posted_ledger_entry_ids"`
}

// Document rehydrates a record; content stays empty until re-extraction.
func (m DocumentMetadata) Document() *Document {
	return &Document{
		ID:                   m.ID,
		Name:                 m.Name,
		Size:                 m.Size,
		MimeType:             m.MimeType,
		ContentHash:          m.ContentHash,
		UploadedAt:           m.UploadedAt,
		Type:                 m.Type,
		Status:               m.Status,
		Logs:                 append([]LogEntry(nil), m.Logs...),
		Version:              m.Version,
		Source:               m.Source,
		IsDuplicate:          m.IsDuplicate,
		DuplicateOf:          m.DuplicateOf,
		ExceptionReason:      m.ExceptionReason,
		FixSuggestion:        m.FixSuggestion,
		PostedLedgerEntryIDs: append([]string(nil), m.PostedLedgerEntryIDs...),
	}
}

// SourceFile is an uploaded payload handed to extractors.
type SourceFile struct {
	Name     string
	MimeType string
	Data     []byte
}

type FileKind string

const (
	KindSpreadsheet FileKind = "spreadsheet"
	KindPDF         FileKind = "pdf"
	KindPlain       FileKind = "plain"
)

// Kind picks the extraction family from the file extension, then the mime type.
func (f SourceFile) Kind() FileKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
	mime := strings.ToLower(f.MimeType)
	switch {
	case ext == "xlsx" || ext == "xlsm" || ext == "xls" || strings.Contains(mime, "sheet"):
		return KindSpreadsheet
	case ext == "pdf" || mime == "application/pdf":
		return KindPDF
	default:
		return KindPlain
	}
}

// StatusEvent is emitted whenever a document changes status.
type StatusEvent struct {
	DocumentID string         `json:"document_id"`
	Name       string         `json:"name"`
	From       DocumentStatus `json:"from"`
	To         DocumentStatus `json:"to"`
	Version    int            `json:"version"`
	At         time.Time      `json:"at"`
}
