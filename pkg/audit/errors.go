package audit

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned for event kinds outside the audited set.
var ErrUnknownEvent = errors.New("unknown audit event kind")

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RetentionError represents an error while enforcing retention.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("audit retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}

// ExportError represents an error during export.
type ExportError struct {
	Format     string // "json", "csv"
	EntryCount int
	Cause      error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("audit export error [format=%s, entry_count=%d]: %v", e.Format, e.EntryCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, entryCount int, cause error) *ExportError {
	return &ExportError{
		Format:     format,
		EntryCount: entryCount,
		Cause:      cause,
	}
}
