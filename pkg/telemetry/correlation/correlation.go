// Package correlation generates and propagates the correlation id that tags
// every record produced for one logical request or operation invocation.
//
// Ids have the form trace-<unix-millis>-<suffix>, where the suffix is the hex
// encoding of a random (version 4) UUID. Generation uses no shared mutable
// state and is safe for concurrent use.
package correlation

import (
	"context"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Header is the HTTP header that carries the correlation id across service
// boundaries.
const Header = "X-Correlation-ID"

// Prefix starts every generated id.
const Prefix = "trace-"

type contextKey struct{}

// Generate returns a new correlation id.
func Generate() string {
	return generateAt(time.Now())
}

func generateAt(now time.Time) string {
	u := uuid.New()
	return Prefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + hex.EncodeToString(u[:])
}

// ExtractOrGenerate returns the inbound id unchanged when present, otherwise a
// newly generated one.
func ExtractOrGenerate(header string) string {
	if header != "" {
		return header
	}
	return Generate()
}

// Inject sets the correlation header on h.
func Inject(h http.Header, id string) {
	h.Set(Header, id)
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the id carried by ctx, or "" if there is none.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// Middleware extracts the correlation id from the inbound request header
// (generating one when absent), echoes it on the response and stores it in
// the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ExtractOrGenerate(r.Header.Get(Header))
		Inject(w.Header(), id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
