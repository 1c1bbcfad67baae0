package mappings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

type file struct {
	Mappings []domain.LedgerMapping `yaml:"mappings"`
}

// Store keeps the account to ledger code table in a YAML file. An empty path
// keeps the table in memory only.
type Store struct {
	path string

	mu      sync.Mutex
	current []domain.LedgerMapping
}

func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

func (s *Store) Load(_ context.Context) ([]domain.LedgerMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return clone(s.current), nil
	}
	if s.path == "" {
		s.current = domain.DefaultLedgerMappings()
		return clone(s.current), nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.current = domain.DefaultLedgerMappings()
		return clone(s.current), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode mappings", err)
	}
	s.current = withDefaults(f.Mappings)
	return clone(s.current), nil
}

func (s *Store) Save(_ context.Context, mappings []domain.LedgerMapping) error {
	for _, m := range mappings {
		if strings.TrimSpace(string(m.Account)) == "" || strings.TrimSpace(m.LedgerCode) == "" {
			return domain.WrapError(domain.ErrInvalidInput, "save mappings", fmt.Errorf("account and ledger_code are required"))
		}
	}
	merged := withDefaults(mappings)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		raw, err := yaml.Marshal(file{Mappings: merged})
		if err != nil {
			return fmt.Errorf("encode mappings: %w", err)
		}
		if err := writeAtomic(s.path, raw); err != nil {
			return err
		}
	}
	s.current = merged
	return nil
}

// withDefaults keeps the caller's order and appends any default account it omits.
func withDefaults(in []domain.LedgerMapping) []domain.LedgerMapping {
	out := make([]domain.LedgerMapping, 0, len(in))
	seen := make(map[domain.LedgerAccount]bool, len(in))
	for _, m := range in {
		if seen[m.Account] {
			continue
		}
		seen[m.Account] = true
		out = append(out, m)
	}
	for _, m := range domain.DefaultLedgerMappings() {
		if !seen[m.Account] {
			out = append(out, m)
		}
	}
	return out
}

func clone(in []domain.LedgerMapping) []domain.LedgerMapping {
	return append([]domain.LedgerMapping(nil), in...)
}

func writeAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mappings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".mappings-*")
	if err != nil {
		return fmt.Errorf("create temp mappings: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write mappings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close mappings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace mappings: %w", err)
	}
	return nil
}
