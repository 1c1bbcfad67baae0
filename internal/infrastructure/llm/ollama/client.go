package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel string) *Client {
	return NewWithOptions(baseURL, genModel, Options{})
}

func NewWithOptions(baseURL, genModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Classifier maps a document onto the closed type vocabulary.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, name, excerpt string) (domain.DocumentType, error) {
	respText, err := c.client.generate(ctx, "ollama.classify", buildClassificationPrompt(name, excerpt), true)
	if err != nil {
		return domain.TypeOther, domain.WrapError(domain.ErrClassificationFail, "classify document", err)
	}

	raw := []byte(extractJSONObject(respText))
	if err := validateClassification(raw); err != nil {
		return domain.TypeOther, domain.WrapError(domain.ErrClassificationFail, "classify document", err)
	}

	var result struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.TypeOther, domain.WrapError(domain.ErrClassificationFail, "parse classification json", err)
	}
	return domain.ParseDocumentType(result.Type), nil
}

// FixSuggester drafts a short remediation checklist for a flagged document.
type FixSuggester struct {
	client       *Client
	excerptChars int
}

func NewFixSuggester(client *Client, excerptChars int) *FixSuggester {
	if excerptChars <= 0 {
		excerptChars = 500
	}
	return &FixSuggester{client: client, excerptChars: excerptChars}
}

func (s *FixSuggester) SuggestFix(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := s.client.generate(ctx, "ollama.fix_suggestion", buildFixSuggestionPrompt(doc, s.excerptChars), false)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty fix suggestion")
	}
	return text, nil
}

// generate runs one call under the executor. operation names the breaker, so
// classification and fix suggestion trip independently.
func (c *Client) generate(ctx context.Context, operation, prompt string, jsonOutput bool) (string, error) {
	req := generateRequest{Model: c.genModel, Prompt: prompt}
	if jsonOutput {
		req.Format = "json"
		req.Options = map[string]any{"temperature": 0}
	}
	out, err := resilience.Do(ctx, c.executor, operation, func(callCtx context.Context) (string, error) {
		return c.postGenerate(callCtx, operation, req)
	}, classifyOllamaError)
	if err != nil {
		return "", resilience.AsTemporary(operation, err, classifyOllamaError)
	}
	return out, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
