package authmon

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientKey struct{}

// Client describes the party calling the authentication service.
type Client struct {
	IPAddress string
	UserAgent string
}

// WithClient returns a context carrying the caller's IP address and user
// agent.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, Client{IPAddress: ip, UserAgent: userAgent})
}

// ClientFromContext returns the client stored by WithClient, or the zero
// Client.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}

// ClientMiddleware stores the request's client information in its context.
// The first X-Forwarded-For address is preferred over the remote address.
func ClientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClient(r.Context(), ClientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the originating IP address of r without the port.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
