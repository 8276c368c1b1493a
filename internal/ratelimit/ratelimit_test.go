package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 3}).WithClock(func() time.Time { return now })
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow(42) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.Allow(42) {
		t.Fatal("fourth request in the window should be refused")
	}
	if !rl.Allow(7) {
		t.Fatal("other users have their own budget")
	}

	now = now.Add(time.Minute)
	if !rl.Allow(42) {
		t.Fatal("a new window should reset the budget")
	}

	m := rl.GetMetrics()
	if m.Rejected != 1 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 1}).WithClock(func() time.Time { return now })
	defer rl.Stop()

	rl.Allow(1)
	now = now.Add(11 * time.Minute)
	rl.Allow(2)
	rl.cleanupStaleEntries()
	if got := rl.GetMetrics().ClientCount; got != 1 {
		t.Fatalf("expected stale user dropped, %d left", got)
	}
}

func TestDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.requestsPerMinute != 30 || rl.cleanupInterval != 5*time.Minute {
		t.Fatalf("unexpected defaults: %d %v", rl.requestsPerMinute, rl.cleanupInterval)
	}
	rl.Stop()
}
