// Package filestore persists document metadata and the ledger as JSON blobs
// on local storage. Every save rewrites the whole collection.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

const (
	documentsKey = "documents.json"
	ledgerKey    = "ledger.json"
)

type BlobStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Store struct {
	storage BlobStorage
}

func New(storage BlobStorage) *Store {
	return &Store{storage: storage}
}

func (s *Store) LoadDocuments(ctx context.Context) ([]domain.DocumentMetadata, error) {
	var docs []domain.DocumentMetadata
	if err := s.load(ctx, documentsKey, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) SaveDocuments(ctx context.Context, docs []domain.DocumentMetadata) error {
	if docs == nil {
		docs = []domain.DocumentMetadata{}
	}
	return s.save(ctx, documentsKey, docs)
}

func (s *Store) LoadLedger(ctx context.Context) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	if err := s.load(ctx, ledgerKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) SaveLedger(ctx context.Context, entries []domain.LedgerEntry) error {
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return s.save(ctx, ledgerKey, entries)
}

// load leaves out untouched when nothing has been saved yet.
func (s *Store) load(ctx context.Context, key string, out any) error {
	rc, err := s.storage.Open(ctx, key)
	if domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.storage.Save(ctx, key, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
