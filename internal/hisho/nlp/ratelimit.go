package nlp

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the per-user translator quota per minute.
	DefaultRateLimit = 60

	defaultRateLimitWindow = time.Minute
)

// RateLimiter is a per-user sliding-window limit on model calls. It holds the
// call timestamps inside the current window and prunes stale ones on every
// Allow, so memory stays bounded to the limit per active user.
//
// RateLimiter is safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	calls  map[string][]time.Time
}

// NewRateLimiter allows at most limit calls per user within window. Zero or
// negative values select the defaults.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		calls:  make(map[string][]time.Time),
	}
}

// Allow reports whether userID may call the model now, and records the call
// when it may.
func (r *RateLimiter) Allow(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	valid := r.prune(userID, now)
	if len(valid) >= r.limit {
		return false
	}
	r.calls[userID] = append(valid, now)
	return true
}

// Remaining is how many calls userID has left in the current window.
func (r *RateLimiter) Remaining(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return max(0, r.limit-len(r.prune(userID, r.now())))
}

// prune drops timestamps outside the window. Must be called with mu held.
func (r *RateLimiter) prune(userID string, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	existing := r.calls[userID]
	valid := existing[:0]
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(r.calls, userID)
		return nil
	}
	r.calls[userID] = valid
	return valid
}
