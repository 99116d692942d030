// Package audit records security-relevant authentication events.
//
// Each call to Logger.LogAuthAttempt produces one immutable Entry. Email,
// IP address and user agent never appear in the clear: every present value
// is replaced by a keyed hash (HMAC-SHA256 with the configured salt), so the
// same raw value always maps to the same token within a deployment and
// events can be correlated without exposing PII. Absent values stay absent.
//
// Entries are emitted synchronously to a sink.Sink. A LOGIN_FAILURE, or any
// event whose error code contains "SECURITY", additionally emits a
// security.alert record. Entries can optionally be persisted through a
// Storage backend (see the storage subpackage), pruned by the retention
// subpackage and exported with the export subpackage.
package audit
