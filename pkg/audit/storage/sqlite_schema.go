package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
// Timestamps are stored as Unix nanoseconds so both drivers round-trip them
// identically.
const Schema = `
-- Audit entries table
CREATE TABLE IF NOT EXISTS audit_entries (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    correlation_id TEXT NOT NULL,
    user_id TEXT NOT NULL,

    -- Redacted client details
    email_hash TEXT,
    ip_hash TEXT,
    user_agent_hash TEXT,

    error_code TEXT,
    severity TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_entries(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_correlation_id ON audit_entries(correlation_id);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_entries(kind);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the schema version if absent.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`

// GetSchemaVersion returns the highest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`
