package mw

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// SignInLimiter throttles sign-in (OTP) requests per IP+email pair using
// windowed counters with TTL-based eviction. Counters are process-local;
// the deployment runs a single instance.
type SignInLimiter struct {
	counters *cache.Cache
	window   time.Duration
	max      int
}

// NewSignInLimiter allows max requests per key within window. Expired
// counters are evicted every cleanup interval.
func NewSignInLimiter(window time.Duration, max int, cleanup time.Duration) *SignInLimiter {
	return &SignInLimiter{
		counters: cache.New(window, cleanup),
		window:   window,
		max:      max,
	}
}

// Allow records one attempt for the given IP and email. When the limit is
// exceeded it returns false and the seconds until the window resets.
func (l *SignInLimiter) Allow(ip, email string) (bool, int) {
	key := ip + ":" + strings.ToLower(email)

	// Add only succeeds for a fresh window; otherwise bump the counter.
	if err := l.counters.Add(key, 1, l.window); err == nil {
		return true, 0
	}
	count, err := l.counters.IncrementInt(key, 1)
	if err != nil {
		// Counter expired between Add and Increment; start a new window.
		l.counters.Set(key, 1, l.window)
		return true, 0
	}
	if count > l.max {
		return false, l.retryAfter(key)
	}
	return true, 0
}

func (l *SignInLimiter) retryAfter(key string) int {
	if _, expiry, ok := l.counters.GetWithExpiration(key); ok && !expiry.IsZero() {
		if remaining := time.Until(expiry); remaining > 0 {
			return int(remaining.Seconds()) + 1
		}
	}
	return 0
}
