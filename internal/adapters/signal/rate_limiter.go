package signal

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// IntentRateLimiter allows at most limit intents per client within a
// sliding interval.
type IntentRateLimiter struct {
	mu       sync.Mutex
	clock    clock.Clock
	history  map[string][]time.Time
	limit    int
	interval time.Duration
}

// NewIntentRateLimiter returns a limiter; limit <= 0 disables it.
func NewIntentRateLimiter(c clock.Clock, limit int, interval time.Duration) *IntentRateLimiter {
	if c == nil {
		c = clock.New()
	}
	return &IntentRateLimiter{
		clock:    c,
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *IntentRateLimiter) Allow(key string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[key]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[key] = fresh
		return false
	}

	rl.history[key] = append(fresh, now)
	return true
}

// Forget drops the history of key.
func (rl *IntentRateLimiter) Forget(key string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, key)
}
