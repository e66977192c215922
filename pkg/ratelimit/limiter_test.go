package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAdmit_AllowAllowDeny(t *testing.T) {
	l := NewLimiter(time.Minute, 2)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(start))

	first := l.Admit("u1")
	second := l.Admit("u1")
	third := l.Admit("u1")

	if !first.Allowed || !second.Allowed {
		t.Fatalf("first two requests should be allowed: %v, %v", first, second)
	}
	if third.Allowed {
		t.Fatal("third request inside window should be denied")
	}
	wantRetry := start.Add(time.Minute)
	if !third.RetryAt.Equal(wantRetry) {
		t.Errorf("RetryAt = %v, want windowStart+window = %v", third.RetryAt, wantRetry)
	}
}

func TestAdmit_RemainingCountsDown(t *testing.T) {
	l := NewLimiter(time.Minute, 3)
	l.SetClock(fixedClock(time.Now()))

	if d := l.Admit("u1"); d.Remaining != 2 {
		t.Errorf("first Remaining = %d, want 2", d.Remaining)
	}
	if d := l.Admit("u1"); d.Remaining != 1 {
		t.Errorf("second Remaining = %d, want 1", d.Remaining)
	}
}

func TestAdmit_WindowResetsAfterElapse(t *testing.T) {
	l := NewLimiter(time.Minute, 1)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(start))

	l.Admit("u1")
	if d := l.Admit("u1"); d.Allowed {
		t.Fatal("second request inside window should be denied")
	}

	l.SetClock(fixedClock(start.Add(time.Minute + time.Second)))
	if d := l.Admit("u1"); !d.Allowed {
		t.Fatal("request after window elapsed should start a fresh window")
	}
}

func TestAdmit_UsersAreIndependent(t *testing.T) {
	l := NewLimiter(time.Minute, 1)
	l.SetClock(fixedClock(time.Now()))

	l.Admit("u1")
	if d := l.Admit("u2"); !d.Allowed {
		t.Error("u2 should not be throttled by u1's window")
	}
}

func TestAdmit_ConcurrentRequestsNeverExceedLimit(t *testing.T) {
	const max = 5
	l := NewLimiter(time.Minute, max)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("u1").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != max {
		t.Errorf("allowed = %d, want exactly %d", allowed, max)
	}
}

func TestSweep_RemovesClosedWindows(t *testing.T) {
	l := NewLimiter(time.Minute, 2)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(start))

	l.Admit("old")
	l.SetClock(fixedClock(start.Add(30 * time.Second)))
	l.Admit("fresh")

	removed := l.Sweep(start.Add(70 * time.Second))
	if removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}
