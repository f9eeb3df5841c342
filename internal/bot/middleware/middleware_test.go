package middleware

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow(1) || !rl.allow(1) {
		t.Fatal("窗口内前两次应允许")
	}
	if rl.allow(1) {
		t.Error("第三次应被限制")
	}
	if !rl.allow(2) {
		t.Error("其他用户不受影响")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow(1) {
		t.Error("窗口过后应重置")
	}
}

func TestRateLimiter_CleansExpired(t *testing.T) {
	now := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }
	rl.lastClean = now

	rl.allow(1)
	rl.allow(2)
	now = now.Add(6 * time.Minute)
	rl.allow(3)

	if len(rl.entries) != 1 {
		t.Errorf("entries = %d, want 1", len(rl.entries))
	}
}
