// Package errtrack fingerprints errors and counts how often each fingerprint
// recurs.
//
// A signature is a 64-bit xxhash of the error's type name, its message and
// the first few frames of the stack recorded by github.com/pkg/errors. Errors
// without a recorded stack fall back to type and message. Each Track call
// increments the signature's count, emits an error.tracked record and, once
// the count reaches the alert threshold, an error.frequency_alert record.
//
// The count table is bounded: when MaxSignatures is reached the least
// recently seen signature is evicted, and an optional TTL lets Prune drop
// signatures that have gone quiet. A retained count never decreases.
package errtrack
