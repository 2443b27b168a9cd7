package services

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// unknown marks integer snapshot fields with no observed value yet.
const unknown = -1

// RateLimitSnapshot is a rolling view of the quota the remote service last
// advertised. It is advisory: the tracker reports, callers decide whether to
// wait. Not persisted; reset at process start.
type RateLimitSnapshot struct {
	Limit      int           // advertised window size, or unknown
	Remaining  int           // requests left in the window, or unknown
	ResetAt    time.Time     // window reset, zero when unknown
	RetryAfter time.Duration // server-requested wait, 0 when unknown
	ObservedAt time.Time     // when the snapshot was last written
	Limited    bool          // a 429 or exhausted quota was observed
}

// RateLimitTracker maintains the snapshot from response headers.
//
// Writes are last-write-wins under a mutex (the most recently completed
// response is authoritative enough for an advisory signal). The tracker
// never blocks by itself.
type RateLimitTracker struct {
	mu   sync.Mutex
	snap RateLimitSnapshot
}

// NewRateLimitTracker creates a tracker with an all-unknown snapshot.
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{
		snap: RateLimitSnapshot{Limit: unknown, Remaining: unknown},
	}
}

// Record updates the snapshot from standard rate-limit headers
// (X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After).
// The limited flag is set whenever the status is 429 or the advertised
// remaining quota is exhausted.
func (t *RateLimitTracker) Record(header http.Header, statusCode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.snap.ObservedAt = now
	t.snap.RetryAfter = 0

	if v, ok := headerInt(header, "X-RateLimit-Limit"); ok {
		t.snap.Limit = v
	}
	if v, ok := headerInt(header, "X-RateLimit-Remaining"); ok {
		t.snap.Remaining = v
	}
	if v, ok := headerInt(header, "X-RateLimit-Reset"); ok {
		t.snap.ResetAt = time.Unix(int64(v), 0)
	}
	if v, ok := headerInt(header, "Retry-After"); ok {
		t.snap.RetryAfter = time.Duration(v) * time.Second
	}

	t.snap.Limited = statusCode == http.StatusTooManyRequests ||
		(t.snap.Remaining != unknown && t.snap.Remaining <= 0)
}

// Status reports whether sends should pause and for how long. The wait is
// the advertised Retry-After when known, otherwise the time remaining until
// the window resets, otherwise zero. A limited state whose wait has fully
// elapsed is reported as clear.
func (t *RateLimitTracker) Status() (limited bool, wait time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.snap.Limited {
		return false, 0
	}

	now := time.Now()
	switch {
	case t.snap.RetryAfter > 0:
		wait = t.snap.RetryAfter - now.Sub(t.snap.ObservedAt)
	case !t.snap.ResetAt.IsZero():
		wait = t.snap.ResetAt.Sub(now)
	default:
		return true, 0
	}

	if wait <= 0 {
		t.snap.Limited = false
		return false, 0
	}
	return true, wait
}

// SafeToSend reports whether a request can go out immediately.
func (t *RateLimitTracker) SafeToSend() bool {
	limited, _ := t.Status()
	if limited {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Remaining == unknown || t.snap.Remaining > 0
}

// Snapshot returns a copy of the current snapshot.
func (t *RateLimitTracker) Snapshot() RateLimitSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func headerInt(header http.Header, key string) (int, bool) {
	raw := header.Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
