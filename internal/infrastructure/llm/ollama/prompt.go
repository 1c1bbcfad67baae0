package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

func buildClassificationPrompt(name, excerpt string) string {
	var categories strings.Builder
	for _, t := range domain.DocumentTypes {
		categories.WriteString("- ")
		categories.WriteString(string(t))
		categories.WriteString("\n")
	}

	return fmt.Sprintf(`You classify accounting documents.
Return a strict JSON object with a single key "type" whose value is exactly one of:
%s
Use "Other" when nothing fits. No markdown, no extra keys.

File name: %s
Content excerpt:
---
%s
---
`, categories.String(), name, excerpt)
}

func buildFixSuggestionPrompt(doc *domain.Document, excerptChars int) string {
	return fmt.Sprintf(`You are a senior accountant reviewing a document that failed automated checks.
Reply with a one-sentence diagnosis followed by a markdown checklist of two to four concrete steps to fix it.

File name: %s
Document type: %s
Exception: %s

Content excerpt:
---
%s
---
`, doc.Name, doc.Type, doc.ExceptionReason, truncateRunes(doc.Content, excerptChars))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
