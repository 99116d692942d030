package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"taxwise-hq/sentinel/pkg/config"
)

// Redactor redacts PII from log fields. Patterns are applied in a fixed
// order so that overlapping matches always redact the same way.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternJWT         = "jwt"
	PatternPassword    = "password"
	PatternEmail       = "email"
	PatternIBAN        = "iban"
	PatternTaxID       = "tax_id"
	PatternIPv6        = "ipv6"
	PatternIPv4        = "ipv4"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternJWT, `eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]*`, "[redacted-jwt]"},
	{PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[redacted-email]"},
	{PatternIBAN, `\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){3,7}(?:\s?[A-Z0-9]{1,3})?\b`, "[redacted-iban]"},
	{PatternTaxID, `\b\d{2}\s?\d{3}\s?\d{3}\s?\d{3}\b`, "[redacted-tax-id]"},
	{PatternIPv6, `\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`, "[redacted-ip]"},
	{PatternIPv4, `\b(?:\d{1,3}\.){3}\d{1,3}\b`, "[redacted-ip]"},
}

// sensitiveKeys mark fields whose value is masked regardless of content.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "salt",
	"authorization", "cookie",
	"tax_id", "taxid", "iban",
	"private_key", "privatekey",
}

// NewRedactor creates a Redactor with the built-in patterns followed by the
// custom ones.
func NewRedactor(customPatterns []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r, nil
}

// RedactString redacts PII from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactArgs redacts PII from variadic log arguments.
// Args are in the form: key1, value1, key2, value2, ...
// slog.Attr values are redacted by key and string content as well.
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 0; i < len(redacted); i++ {
		if key, ok := redacted[i].(string); ok && i+1 < len(redacted) {
			redacted[i+1] = r.redactField(key, redacted[i+1])
			i++
			continue
		}
		if attr, ok := redacted[i].(slog.Attr); ok {
			redacted[i] = r.redactAttr(attr)
		}
	}

	return redacted
}

func (r *Redactor) redactField(key string, value any) any {
	if isSensitiveKey(key) {
		return maskValue(value)
	}
	switch v := value.(type) {
	case string:
		return r.RedactString(v)
	case error:
		return r.RedactString(v.Error())
	default:
		return value
	}
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskValue masks a sensitive value, keeping a short prefix of long strings.
func maskValue(value any) any {
	v, ok := value.(string)
	if !ok {
		return "***"
	}
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}

func (r *Redactor) redactAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.Any(attr.Key, maskValue(attr.Value.Any()))
	}
	if attr.Value.Kind() == slog.KindString {
		return slog.String(attr.Key, r.RedactString(attr.Value.String()))
	}
	return attr
}
