// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging in JSON or text format
//   - Regex based PII redaction (emails, IP addresses, tax ids, IBANs, tokens)
//   - Context fields: correlation id, user id, operation, trace and span ids
//   - A minimum level that can be changed at runtime (config hot reload)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	logger.InfoContext(ctx, "login attempt",
//	    "email", "jane@example.com", // written as [redacted-email]
//	    "duration_ms", 12.5,
//	)
//
// # PII Redaction
//
// Values are redacted by content and by key. Fields whose key names a secret
// (password, token, salt, iban, tax_id, ...) are masked regardless of value.
// Redaction applies to records written through Logger methods; records written
// through Slog() are passed through unchanged.
package logging
