package ratelimit

import (
	"sync"
	"time"

	"github.com/lumiebot/lumie/pkg/logger"
)

// Decision is the outcome of one admission check. RetryAt is only set
// when the request was denied.
type Decision struct {
	Allowed   bool
	Remaining int
	RetryAt   time.Time
}

type record struct {
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window counter keyed by user id. Windows reset
// lazily on the next request after they elapse; Sweep bounds memory for
// keys that never come back.
type Limiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*record
}

func NewLimiter(window time.Duration, maxRequests int) *Limiter {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if maxRequests <= 0 {
		maxRequests = 2
	}
	return &Limiter{
		window:  window,
		max:     maxRequests,
		now:     time.Now,
		records: make(map[string]*record),
	}
}

// SetClock replaces the time source, for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Admit counts one request for userID and decides whether it may proceed.
func (l *Limiter) Admit(userID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	rec, ok := l.records[userID]
	if !ok || now.Sub(rec.windowStart) > l.window {
		l.records[userID] = &record{count: 1, windowStart: now}
		return Decision{Allowed: true, Remaining: l.max - 1}
	}

	if rec.count >= l.max {
		retryAt := rec.windowStart.Add(l.window)
		logger.DebugCF("ratelimit", "Request denied", map[string]interface{}{
			"user_id":  userID,
			"retry_at": retryAt.Format(time.RFC3339),
		})
		return Decision{Allowed: false, RetryAt: retryAt}
	}

	rec.count++
	return Decision{Allowed: true, Remaining: l.max - rec.count}
}

// Sweep drops records whose window has closed and returns how many were
// removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for userID, rec := range l.records {
		if now.Sub(rec.windowStart) > l.window {
			delete(l.records, userID)
			removed++
		}
	}
	return removed
}

// Len reports the number of live windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
