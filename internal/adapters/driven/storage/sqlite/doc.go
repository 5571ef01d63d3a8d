// Package sqlite provides the SQLite-backed implementation of the content
// store port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Documents and records are
// stored append-only: writes insert a new version and flip the latest pointer
// in one transaction, and a partial unique index enforces the single-latest
// invariant at the schema level.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.webcra/data/content.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
