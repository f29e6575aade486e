package handlers

import (
	"net"
	"net/http"
	"strings"
)

// RateLimiter guards abuse-prone endpoints such as login and signup.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest consults the limiter with a key scoped to the endpoint and the
// caller's address. A nil limiter admits everything.
func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	key := clientIP(r)
	if scope != "" {
		key = scope + ":" + key
	}
	return limiter.Allow(key)
}

// clientIP prefers the first X-Forwarded-For hop so limits hold behind a
// proxy, falling back to the connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	return remote
}
