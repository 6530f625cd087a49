// Package sqlite provides a persistent driven.VectorStore on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Vectors are stored as little-endian float32 BLOBs and the index dimension is
// recorded in the index_meta table, so a database cannot be reopened with a
// different embedding size.
//
// # Search
//
// Similarity search is an exact cosine scan performed in Go over the rows
// that pass the namespace and document filters.
//
// # Data Location
//
// By default, the database is stored at ~/.ragline/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
