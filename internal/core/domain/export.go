package domain

import "fmt"

// ManifestEntry describes one document inside an evidence bundle.
type ManifestEntry struct {
	Name   string       `json:"name"`
	Type   DocumentType `json:"type"`
	Size   int64        `json:"size"`
	SHA256 string       `json:"sha256"`
}

// BundleManifest is keyed by document id.
type BundleManifest map[string]ManifestEntry

// GeneratedFile is a downloadable artifact returned inline as base64.
type GeneratedFile struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Content  string `json:"content"`
}

// BatchResult reports the outcome of one document within a fan-out operation.
type BatchResult struct {
	DocumentID string `json:"document_id"`
	Started    bool   `json:"started"`
	Error      string `json:"error,omitempty"`
}

// ValidatePageRange enforces 1 <= from <= to <= total.
func ValidatePageRange(fromPage, toPage, total int) error {
	if fromPage < 1 || fromPage > toPage || toPage > total {
		return WrapError(ErrRangeError, "validate page range", fmt.Errorf("pages %d-%d outside 1-%d", fromPage, toPage, total))
	}
	return nil
}
