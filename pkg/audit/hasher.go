package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashPrefix marks values produced by Hasher.
const HashPrefix = "hmac:"

// Hasher redacts PII into deterministic keyed hashes.
type Hasher struct {
	key []byte
}

// NewHasher creates a Hasher keyed with salt.
func NewHasher(salt string) *Hasher {
	return &Hasher{key: []byte(salt)}
}

// Hash returns the redaction token for value, or "" for an empty value.
func (h *Hasher) Hash(value string) string {
	if value == "" {
		return ""
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(value))
	return HashPrefix + hex.EncodeToString(mac.Sum(nil))
}
