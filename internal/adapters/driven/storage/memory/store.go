package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ContentStore = (*Store)(nil)

// Store is an in-memory implementation of driven.ContentStore with the same
// append-only version semantics as the SQLite store. Used in tests and as a
// throwaway backend.
type Store struct {
	mu        sync.RWMutex
	documents map[string][]domain.Document // keyed by URL, newest first
	records   map[string][]domain.Record   // keyed by logical key, newest first
}

// NewStore creates a new in-memory content store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string][]domain.Document),
		records:   make(map[string][]domain.Record),
	}
}

// PutDocument appends a new version for doc.URL and flips the latest pointer.
func (s *Store) PutDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := domain.NormalizeURL(doc.URL)
	history := s.documents[url]

	version := 1
	if len(history) > 0 {
		version = history[0].Version + 1
		history[0].IsLatest = false
	}

	doc.URL = url
	doc.Version = version
	doc.IsLatest = true
	if doc.FetchedAt.IsZero() {
		doc.FetchedAt = time.Now().UTC()
	}

	s.documents[url] = append([]domain.Document{*doc}, history...)
	return nil
}

// GetLatestDocuments returns the current version of every document,
// optionally restricted to one topic.
func (s *Store) GetLatestDocuments(_ context.Context, topic string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for _, history := range s.documents {
		latest := history[0]
		if topic != "" && latest.Topic != topic {
			continue
		}
		result = append(result, latest)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].URL < result[j].URL })
	return result, nil
}

// GetDocumentHistory returns every stored version for a URL, newest first.
func (s *Store) GetDocumentHistory(_ context.Context, url string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.documents[domain.NormalizeURL(url)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Document, len(history))
	copy(out, history)
	return out, nil
}

// PutRecord appends a new version for rec.Key and flips the latest pointer.
func (s *Store) PutRecord(_ context.Context, rec *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.records[rec.Key]

	version := 1
	if len(history) > 0 {
		version = history[0].Version + 1
		history[0].IsLatest = false
	}

	rec.Version = version
	rec.IsLatest = true
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.records[rec.Key] = append([]domain.Record{*rec}, history...)
	return nil
}

// GetLatestRecords returns current records filtered by topic and/or category.
func (s *Store) GetLatestRecords(_ context.Context, topic, category string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Record
	for _, history := range s.records {
		latest := history[0]
		if topic != "" && latest.Topic != topic {
			continue
		}
		if category != "" && latest.Category != category {
			continue
		}
		result = append(result, latest)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// GetRecordHistory returns every stored version for a logical key, newest first.
func (s *Store) GetRecordHistory(_ context.Context, key string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Record, len(history))
	copy(out, history)
	return out, nil
}

// Stats summarises current store contents.
func (s *Store) Stats(_ context.Context) (domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make(map[string]bool)
	for _, history := range s.documents {
		topics[history[0].Topic] = true
	}
	for _, history := range s.records {
		topics[history[0].Topic] = true
	}

	return domain.StoreStats{
		LatestDocuments: len(s.documents),
		LatestRecords:   len(s.records),
		Topics:          len(topics),
	}, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
