// Package sqlite provides the SQLite-backed operation journal.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The journal records the start and end of every mutating
// index operation so that users left mid-operation by a crash can be
// repaired at the next start.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/journal.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
