package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/infrastructure/resilience"
)

func generateServer(t *testing.T, reply string, captured *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if captured != nil {
			*captured, _ = payload["prompt"].(string)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": reply})
	}))
}

func TestClassifierReturnsKnownType(t *testing.T) {
	var prompt string
	server := generateServer(t, `{"type":"Bank Statement"}`, &prompt)
	defer server.Close()

	got, err := NewClassifier(New(server.URL, "gen")).Classify(context.Background(), "hdfc.csv", "Date,Debit,Credit,Balance")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != domain.TypeBankStatement {
		t.Fatalf("Classify() = %q, want Bank Statement", got)
	}
	if !strings.Contains(prompt, "hdfc.csv") || !strings.Contains(prompt, "Debit,Credit") {
		t.Fatalf("prompt missing name or excerpt: %s", prompt)
	}
}

func TestClassifierRejectsUnknownType(t *testing.T) {
	server := generateServer(t, `{"type":"Shopping List"}`, nil)
	defer server.Close()

	got, err := NewClassifier(New(server.URL, "gen")).Classify(context.Background(), "x.txt", "milk")
	if !errors.Is(err, domain.ErrClassificationFail) {
		t.Fatalf("expected classification failure, got %v", err)
	}
	if got != domain.TypeOther {
		t.Fatalf("expected Other on failure, got %q", got)
	}
}

func TestClassifierToleratesWrappedJSON(t *testing.T) {
	server := generateServer(t, "Sure:\n{\"type\":\"Invoice\"}\n", nil)
	defer server.Close()

	got, err := NewClassifier(New(server.URL, "gen")).Classify(context.Background(), "inv.pdf", "Invoice No 42")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != domain.TypeInvoice {
		t.Fatalf("Classify() = %q, want Invoice", got)
	}
}

func TestClassifierRetriesTemporaryStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{\"type\":\"GSTR-2B\"}"}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
	client := NewWithOptions(server.URL, "gen", Options{ResilienceExecutor: exec})
	got, err := NewClassifier(client).Classify(context.Background(), "2b.xlsx", "GSTR-2B")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != domain.TypeGSTR2B || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected GSTR-2B after one retry, got %q in %d calls", got, calls)
	}
}

func TestGenerateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewFixSuggester(New(server.URL, "gen"), 500).SuggestFix(context.Background(), &domain.Document{Name: "a.csv"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be reported as temporary, got %v", err)
	}
}

func TestFixSuggestionPromptCarriesContext(t *testing.T) {
	var prompt string
	server := generateServer(t, "Re-export the file.\n- [ ] Check totals", &prompt)
	defer server.Close()

	doc := &domain.Document{
		Name:            "tiny.csv",
		Type:            domain.TypeSalesRegister,
		ExceptionReason: "Low content detected, please verify.",
		Content:         strings.Repeat("x", 900),
	}
	got, err := NewFixSuggester(New(server.URL, "gen"), 500).SuggestFix(context.Background(), doc)
	if err != nil {
		t.Fatalf("SuggestFix() error = %v", err)
	}
	if !strings.Contains(got, "Check totals") {
		t.Fatalf("unexpected suggestion %q", got)
	}
	if !strings.Contains(prompt, "Low content detected") || !strings.Contains(prompt, "Sales Register") {
		t.Fatalf("prompt missing context: %s", prompt)
	}
	if strings.Contains(prompt, strings.Repeat("x", 501)) {
		t.Fatal("expected content excerpt to be bounded")
	}
}

func TestClassifyRequestsDeterministicJSON(t *testing.T) {
	var bodies []generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		bodies = append(bodies, req)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `{"type":"Invoice"}`})
	}))
	defer server.Close()

	client := New(server.URL, "llama3.1:8b")
	if _, err := NewClassifier(client).Classify(context.Background(), "inv.pdf", "Invoice #1"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if _, err := NewFixSuggester(client, 100).SuggestFix(context.Background(), &domain.Document{Name: "inv.pdf"}); err != nil {
		t.Fatalf("SuggestFix() error = %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	if bodies[0].Format != "json" || bodies[0].Options["temperature"] != float64(0) || bodies[0].Stream {
		t.Fatalf("unexpected classification request %+v", bodies[0])
	}
	if bodies[1].Format != "" || bodies[1].Model != "llama3.1:8b" {
		t.Fatalf("unexpected fix suggestion request %+v", bodies[1])
	}
}
