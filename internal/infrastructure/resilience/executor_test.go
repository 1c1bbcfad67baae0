package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errUnavailable = errors.New("classifier unavailable")

func fastRetries(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func retryUnavailable(err error) ErrorClassification {
	return ErrorClassification{Retryable: errors.Is(err, errUnavailable), RecordFailure: true}
}

type observerFake struct {
	mu      sync.Mutex
	retries map[string]int
	states  []string
}

func (o *observerFake) RetryScheduled(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.retries == nil {
		o.retries = map[string]int{}
	}
	o.retries[operation]++
}

func (o *observerFake) BreakerStateChanged(_ string, state string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	observer := &observerFake{}
	exec := NewExecutor(fastRetries(3), WithObserver(observer))

	calls := 0
	err := exec.Execute(context.Background(), "ollama.classify", func(context.Context) error {
		calls++
		if calls < 3 {
			return errUnavailable
		}
		return nil
	}, retryUnavailable)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if observer.retries["ollama.classify"] != 2 {
		t.Fatalf("expected 2 observed retries, got %v", observer.retries)
	}
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastRetries(3))

	calls := 0
	errSchema := errors.New("response violates schema")
	err := exec.Execute(context.Background(), "ollama.classify", func(context.Context) error {
		calls++
		return errSchema
	}, retryUnavailable)
	if !errors.Is(err, errSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastRetries(2))

	calls := 0
	err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		calls++
		return errUnavailable
	}, retryUnavailable)
	if !errors.Is(err, errUnavailable) || calls != 2 {
		t.Fatalf("expected 2 calls ending in unavailable, got %d calls err=%v", calls, err)
	}
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	exec := NewExecutor(fastRetries(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "op", func(context.Context) error {
		t.Fatalf("operation must not run with a cancelled context")
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBreakerOpensAndReportsState(t *testing.T) {
	observer := &observerFake{}
	cfg := fastRetries(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg, WithObserver(observer))

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "ollama.fix", func(context.Context) error {
			return errUnavailable
		}, nil)
		if !errors.Is(err, errUnavailable) {
			t.Fatalf("call %d: expected unavailable, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "ollama.fix", func(context.Context) error {
		t.Fatalf("open circuit must not call the operation")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if len(observer.states) != 1 || observer.states[0] != "open" {
		t.Fatalf("expected one open transition, got %v", observer.states)
	}

	// Breakers are per operation.
	if err := exec.Execute(context.Background(), "ollama.classify", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("other operation should be unaffected, got %v", err)
	}
}

func TestNilExecutorCallsOnce(t *testing.T) {
	var exec *Executor
	calls := 0
	if err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(fastRetries(2))

	calls := 0
	got, err := Do(context.Background(), exec, "ollama.classify", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errUnavailable
		}
		return "Invoice", nil
	}, retryUnavailable)
	if err != nil || got != "Invoice" {
		t.Fatalf("Do() = %q, %v; want Invoice", got, err)
	}
}

func TestBackoffIsCappedExponential(t *testing.T) {
	b := Config{
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     300 * time.Millisecond,
		RetryMultiplier:     2,
	}.backoff()

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := b.step(); got != w {
			t.Fatalf("step %d = %v, want %v", i, got, w)
		}
	}
}

func TestForCollaboratorOverridesAttempts(t *testing.T) {
	cfg := ForCollaborator(false, 5)
	if cfg.BreakerEnabled || cfg.RetryMaxAttempts != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := ForCollaborator(true, 0).RetryMaxAttempts; got != DefaultConfig().RetryMaxAttempts {
		t.Fatalf("expected default attempts, got %d", got)
	}
}

func TestNormalizeFillsZeroFields(t *testing.T) {
	got := Config{RetryInitialBackoff: time.Second}.normalize()
	if got.RetryMaxBackoff != time.Second {
		t.Fatalf("max backoff must not be below initial, got %v", got.RetryMaxBackoff)
	}
	if got.RetryMaxAttempts != 3 || got.BreakerMinRequests != 10 {
		t.Fatalf("expected defaults, got %+v", got)
	}
}
