// Package pdf extracts page text from PDF documents, unlocking encrypted files
// with a caller supplied password first.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

const (
	passwordRequiredMessage = "This PDF is password-protected."
	invalidPasswordMessage  = "The provided password was incorrect."
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract joins per-page text in page order, separated by a blank line.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile, password string) (string, error) {
	plain, err := Unlock(file.Data, password)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := pageText(ctx, plain)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailure, "extract pdf text", fmt.Errorf("%s: %w", file.Name, err))
	}
	return text, nil
}

// Unlock returns an unencrypted copy of raw. Unencrypted input is returned as is.
// A missing password yields ErrPasswordRequired, a rejected one ErrInvalidPassword.
func Unlock(raw []byte, password string) ([]byte, error) {
	conf := newConfiguration(password)

	pdfCtx, err := api.ReadContext(bytes.NewReader(raw), conf)
	if err != nil {
		return nil, classifyReadError(err, password)
	}
	if pdfCtx.Encrypt == nil {
		return raw, nil
	}

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(raw), &out, conf); err != nil {
		return nil, classifyReadError(err, password)
	}
	return out.Bytes(), nil
}

func newConfiguration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

func classifyReadError(err error, password string) error {
	if isWrongPassword(err) {
		if password == "" {
			return domain.WrapError(domain.ErrPasswordRequired, "unlock pdf", errors.New(passwordRequiredMessage))
		}
		return domain.WrapError(domain.ErrInvalidPassword, "unlock pdf", errors.New(invalidPasswordMessage))
	}
	return domain.WrapError(domain.ErrExtractionFailure, "read pdf", err)
}

func isWrongPassword(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "password")
}

func pageText(ctx context.Context, raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		out.WriteString(content)
		out.WriteString("\n\n")
	}
	return strings.TrimSpace(out.String()), nil
}
