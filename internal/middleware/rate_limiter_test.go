package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiterEnforcesBurst(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 2, time.Hour)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first request to pass")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected burst capacity to admit second request")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected third request to be throttled")
	}

	// A different key has its own bucket.
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected independent key to pass")
	}
}

func TestIPRateLimiterEvictsIdleEntries(t *testing.T) {
	raw := NewIPRateLimiter(1, time.Hour, 1, time.Minute).(*ipRateLimiter)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw.now = func() time.Time { return base }
	raw.Allow("stale")

	raw.now = func() time.Time { return base.Add(2 * time.Minute) }
	raw.Allow("fresh")

	raw.mu.Lock()
	_, staleKept := raw.entries["stale"]
	_, freshKept := raw.entries["fresh"]
	raw.mu.Unlock()

	if staleKept {
		t.Fatal("expected idle entry to be evicted")
	}
	if !freshKept {
		t.Fatal("expected active entry to remain")
	}
}

func TestIPRateLimiterEmptyKey(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Hour)

	if !limiter.Allow("") {
		t.Fatal("expected empty key to share the fallback bucket")
	}
	if limiter.Allow("") {
		t.Fatal("expected fallback bucket to throttle")
	}
}
