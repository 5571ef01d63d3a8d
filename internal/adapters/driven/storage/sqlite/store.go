package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/baransitours-bot/webcra/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ContentStore = (*Store)(nil)

// Store is the SQLite-backed content store. Documents and records are
// append-only: every write inserts a new version and flips the latest
// pointer in one transaction.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.webcra/data/content.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".webcra", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "content.db")

	// WAL mode for concurrent readers during crawl writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// PutDocument inserts a new version for doc.URL and supersedes the previous
// latest row in one transaction. A failed flip surfaces as
// domain.ErrStoreConflict.
func (s *Store) PutDocument(ctx context.Context, doc *domain.Document) error {
	url := domain.NormalizeURL(doc.URL)
	if url == "" {
		return fmt.Errorf("%w: document URL is required", domain.ErrInvalidInput)
	}

	linksJSON, err := json.Marshal(doc.Links)
	if err != nil {
		return fmt.Errorf("marshalling links: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	if doc.FetchedAt.IsZero() {
		doc.FetchedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var version int
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM documents WHERE url = ?", url)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}
	version++

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET is_latest = 0 WHERE url = ? AND is_latest = 1", url); err != nil {
		return fmt.Errorf("%w: superseding document %s: %v", domain.ErrStoreConflict, url, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents
			(id, url, topic, title, content, html, links, depth, version, is_latest, metadata, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, doc.ID, url, doc.Topic, doc.Title, doc.Content, doc.HTML,
		string(linksJSON), doc.Depth, version, string(metadataJSON), doc.FetchedAt)
	if err != nil {
		return fmt.Errorf("%w: inserting document %s: %v", domain.ErrStoreConflict, url, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing document %s: %v", domain.ErrStoreConflict, url, err)
	}

	doc.URL = url
	doc.Version = version
	doc.IsLatest = true
	return nil
}

// GetLatestDocuments returns the current version of every document,
// optionally restricted to one topic.
func (s *Store) GetLatestDocuments(ctx context.Context, topic string) ([]domain.Document, error) {
	query := `
		SELECT id, url, topic, title, content, html, links, depth, version, is_latest, metadata, fetched_at
		FROM documents WHERE is_latest = 1`
	args := []any{}
	if topic != "" {
		query += " AND topic = ?"
		args = append(args, topic)
	}
	query += " ORDER BY url"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// GetDocumentHistory returns every stored version for a URL, newest first.
func (s *Store) GetDocumentHistory(ctx context.Context, url string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, topic, title, content, html, links, depth, version, is_latest, metadata, fetched_at
		FROM documents WHERE url = ?
		ORDER BY version DESC
	`, domain.NormalizeURL(url))
	if err != nil {
		return nil, fmt.Errorf("querying document history: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs, nil
}

// ==================== Records ====================

// PutRecord inserts a new version for rec.Key and supersedes the previous
// latest row in one transaction.
func (s *Store) PutRecord(ctx context.Context, rec *domain.Record) error {
	if rec.Key == "" {
		return fmt.Errorf("%w: record key is required", domain.ErrInvalidInput)
	}

	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshalling fields: %w", err)
	}
	keyPointsJSON, err := json.Marshal(rec.KeyPoints)
	if err != nil {
		return fmt.Errorf("marshalling key points: %w", err)
	}
	sourcesJSON, err := json.Marshal(rec.SourceURLs)
	if err != nil {
		return fmt.Errorf("marshalling source urls: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var version int
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM records WHERE key = ?", rec.Key)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}
	version++

	if _, err := tx.ExecContext(ctx,
		"UPDATE records SET is_latest = 0 WHERE key = ? AND is_latest = 1", rec.Key); err != nil {
		return fmt.Errorf("%w: superseding record %s: %v", domain.ErrStoreConflict, rec.Key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records
			(id, key, kind, topic, name, category, fields, summary, key_points, source_urls, version, is_latest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`, rec.ID, rec.Key, string(rec.Kind), rec.Topic, rec.Name, rec.Category,
		string(fieldsJSON), rec.Summary, string(keyPointsJSON), string(sourcesJSON),
		version, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: inserting record %s: %v", domain.ErrStoreConflict, rec.Key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing record %s: %v", domain.ErrStoreConflict, rec.Key, err)
	}

	rec.Version = version
	rec.IsLatest = true
	return nil
}

// GetLatestRecords returns current records filtered by topic and/or category.
func (s *Store) GetLatestRecords(ctx context.Context, topic, category string) ([]domain.Record, error) {
	query := `
		SELECT id, key, kind, topic, name, category, fields, summary, key_points, source_urls, version, is_latest, created_at
		FROM records WHERE is_latest = 1`
	args := []any{}
	if topic != "" {
		query += " AND topic = ?"
		args = append(args, topic)
	}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY key"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecordHistory returns every stored version for a logical key, newest first.
func (s *Store) GetRecordHistory(ctx context.Context, key string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, kind, topic, name, category, fields, summary, key_points, source_urls, version, is_latest, created_at
		FROM records WHERE key = ?
		ORDER BY version DESC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("querying record history: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return records, nil
}

// ==================== Stats ====================

// Stats summarises current store contents.
func (s *Store) Stats(ctx context.Context) (domain.StoreStats, error) {
	var stats domain.StoreStats

	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE is_latest = 1")
	if err := row.Scan(&stats.LatestDocuments); err != nil {
		return stats, fmt.Errorf("counting documents: %w", err)
	}

	row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE is_latest = 1")
	if err := row.Scan(&stats.LatestRecords); err != nil {
		return stats, fmt.Errorf("counting records: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT topic FROM documents WHERE is_latest = 1
			UNION
			SELECT topic FROM records WHERE is_latest = 1
		)
	`)
	if err := row.Scan(&stats.Topics); err != nil {
		return stats, fmt.Errorf("counting topics: %w", err)
	}

	return stats, nil
}

// ==================== Helper Functions ====================

// scanDocuments scans document rows.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var linksJSON, metadataJSON string
		var isLatest int

		if err := rows.Scan(&doc.ID, &doc.URL, &doc.Topic, &doc.Title, &doc.Content,
			&doc.HTML, &linksJSON, &doc.Depth, &doc.Version, &isLatest,
			&metadataJSON, &doc.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc.IsLatest = isLatest == 1
		if err := json.Unmarshal([]byte(linksJSON), &doc.Links); err != nil {
			return nil, fmt.Errorf("unmarshalling links: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// scanRecords scans record rows.
func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.Record
		var kind, fieldsJSON, keyPointsJSON, sourcesJSON string
		var isLatest int

		if err := rows.Scan(&rec.ID, &rec.Key, &kind, &rec.Topic, &rec.Name,
			&rec.Category, &fieldsJSON, &rec.Summary, &keyPointsJSON, &sourcesJSON,
			&rec.Version, &isLatest, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		rec.Kind = domain.RecordKind(kind)
		rec.IsLatest = isLatest == 1
		if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
			return nil, fmt.Errorf("unmarshalling fields: %w", err)
		}
		if err := json.Unmarshal([]byte(keyPointsJSON), &rec.KeyPoints); err != nil {
			return nil, fmt.Errorf("unmarshalling key points: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &rec.SourceURLs); err != nil {
			return nil, fmt.Errorf("unmarshalling source urls: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}
