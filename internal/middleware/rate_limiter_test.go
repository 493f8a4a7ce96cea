package middleware

import (
	"testing"
	"time"
)

func TestRateLimiter_CheckUserLimit(t *testing.T) {
	rl := NewRateLimiter(3, 10, time.Minute)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.CheckUserLimit("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.CheckUserLimit("user-1") {
		t.Error("fourth request should be rejected")
	}
	if !rl.CheckUserLimit("user-2") {
		t.Error("other users should not be affected")
	}
	if got := rl.GetUserRemaining("user-2"); got != 2 {
		t.Errorf("GetUserRemaining() = %d, want 2", got)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 1, 20*time.Millisecond)
	defer rl.Stop()

	if !rl.CheckIPLimit("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if rl.CheckIPLimit("10.0.0.1") {
		t.Fatal("second request should be rejected")
	}

	time.Sleep(30 * time.Millisecond)

	if !rl.CheckIPLimit("10.0.0.1") {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	defer rl.Stop()

	rl.CheckUserLimit("u")
	rl.Reset()

	if got := rl.GetUserRemaining("u"); got != 1 {
		t.Errorf("GetUserRemaining() after Reset = %d, want 1", got)
	}
	rl.Stop()
}
