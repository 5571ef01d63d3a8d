package driven

import (
	"context"

	"github.com/baransitours-bot/webcra/internal/core/domain"
)

// DocumentStore persists fetched pages with immutable version history.
//
// PutDocument performs supersede-and-insert atomically: the previous latest
// version for the document's URL (if any) is marked superseded and the new
// version inserted in one transaction. A failed flip surfaces as
// domain.ErrStoreConflict and must never leave two latest rows.
type DocumentStore interface {
	// PutDocument writes a new version for doc.URL. The store assigns
	// Version and IsLatest; callers populate everything else.
	PutDocument(ctx context.Context, doc *domain.Document) error

	// GetLatestDocuments returns the current version of every document,
	// optionally restricted to one topic (empty topic means all).
	GetLatestDocuments(ctx context.Context, topic string) ([]domain.Document, error)

	// GetDocumentHistory returns every stored version for a URL,
	// newest first. Returns domain.ErrNotFound for unknown URLs.
	GetDocumentHistory(ctx context.Context, url string) ([]domain.Document, error)
}

// RecordStore persists extracted records with the same versioning contract
// as DocumentStore, keyed by the record's logical Key.
type RecordStore interface {
	// PutRecord writes a new version for rec.Key. The store assigns
	// Version and IsLatest.
	PutRecord(ctx context.Context, rec *domain.Record) error

	// GetLatestRecords returns current records filtered by topic and/or
	// category; empty strings mean no filter.
	GetLatestRecords(ctx context.Context, topic, category string) ([]domain.Record, error)

	// GetRecordHistory returns every stored version for a logical key,
	// newest first. Returns domain.ErrNotFound for unknown keys.
	GetRecordHistory(ctx context.Context, key string) ([]domain.Record, error)
}

// ContentStore is the full persistence boundary: the pipeline never issues
// ad hoc queries below this API.
type ContentStore interface {
	DocumentStore
	RecordStore

	// Stats summarises current store contents.
	Stats(ctx context.Context) (domain.StoreStats, error)

	// Close releases resources.
	Close() error
}
