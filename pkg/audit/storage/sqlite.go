package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"taxwise-hq/sentinel/pkg/audit"
)

const backendSQLite = "sqlite"

// Driver names accepted by SQLiteConfig.Driver.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite3" or "sqlite".
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies the schema and verifies its
// version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPure {
		return nil, audit.NewStorageError(backendSQLite, "open",
			fmt.Errorf("unsupported driver %q", config.Driver))
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(config.Driver, dsn(config))
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// dsn builds a driver-specific connection string. Busy timeout and journal
// mode go into the DSN so that every pooled connection gets them.
func dsn(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	params := url.Values{}
	switch config.Driver {
	case DriverPure:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", ms))
		if config.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		params.Set("_busy_timeout", fmt.Sprint(ms))
		if config.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	}
	return "file:" + config.Path + "?" + params.Encode()
}

// initialize sets up the database schema and checks its version.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError(backendSQLite, "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(backendSQLite, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return audit.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return audit.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	s.logger.Debug("schema version verified", "version", version.Int64)
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError(backendSQLite, "ping", err)
	}
	return nil
}

// Store persists an audit entry.
func (s *SQLiteStorage) Store(ctx context.Context, entry *audit.Entry) error {
	const query = `
		INSERT INTO audit_entries (
			id, kind, timestamp, correlation_id, user_id,
			email_hash, ip_hash, user_agent_hash,
			error_code, severity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, string(entry.Kind), entry.Timestamp.UnixNano(), entry.CorrelationID, entry.UserID,
		nullable(entry.EmailHash), nullable(entry.IPHash), nullable(entry.UserAgentHash),
		nullable(entry.ErrorCode), string(entry.Severity),
	)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "store", err)
	}
	return nil
}

// Query retrieves entries matching the query filters. A zero Limit returns
// every match.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := `SELECT id, kind, timestamp, correlation_id, user_id,
		email_hash, ip_hash, user_agent_hash, error_code, severity
		FROM audit_entries`
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortOrder := "DESC"
	if query.Ascending() {
		sortOrder = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY timestamp %s, id %s", sortOrder, sortOrder)

	limit := -1
	offset := 0
	if query != nil {
		if query.Limit > 0 {
			limit = query.Limit
		}
		offset = max(query.Offset, 0)
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	entries := []*audit.Entry{}
	for rows.Next() {
		entry, err := scanRow(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendSQLite, "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}

	return entries, nil
}

// Count returns the number of entries matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM audit_entries"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes entries matching the query filters.
// Returns the number of entries deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM audit_entries"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause constructs a WHERE clause from query filters.
func buildWhereClause(query *audit.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(query.Kind))
	}
	if query.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(query.Severity))
	}
	if query.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, query.UserID)
	}
	if query.CorrelationID != "" {
		conditions = append(conditions, "correlation_id = ?")
		args = append(args, query.CorrelationID)
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*audit.Entry, error) {
	var (
		entry                            audit.Entry
		kind, severity                   string
		ts                               int64
		emailHash, ipHash, uaHash, errCd sql.NullString
	)
	if err := rows.Scan(
		&entry.ID, &kind, &ts, &entry.CorrelationID, &entry.UserID,
		&emailHash, &ipHash, &uaHash, &errCd, &severity,
	); err != nil {
		return nil, err
	}

	entry.Kind = audit.EventKind(kind)
	entry.Severity = audit.Severity(severity)
	entry.Timestamp = time.Unix(0, ts).UTC()
	entry.EmailHash = emailHash.String
	entry.IPHash = ipHash.String
	entry.UserAgentHash = uaHash.String
	entry.ErrorCode = errCd.String
	return &entry, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
