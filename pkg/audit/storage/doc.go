// Package storage provides audit trail backends implementing audit.Storage.
//
// MemoryStorage keeps entries in process memory and is intended for tests
// and short-lived deployments. SQLiteStorage persists entries to a SQLite
// database through either the cgo driver (github.com/mattn/go-sqlite3,
// driver name "sqlite3") or the pure-Go driver (modernc.org/sqlite, driver
// name "sqlite").
package storage
