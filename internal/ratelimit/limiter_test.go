package ratelimit

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLimiter(ceiling int, period time.Duration) (*Limiter, *time.Time) {
	l := New(ceiling, period, zerolog.Nop())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.SetNow(func() time.Time { return now })
	return l, &now
}

func TestLimiterCeiling(t *testing.T) {
	l, _ := newTestLimiter(50, time.Hour)

	for i := 0; i < 50; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("51st request within the window should be rejected")
	}
	// Rejected requests must not advance the counter.
	if l.Allow("1.2.3.4") {
		t.Fatal("subsequent request should still be rejected")
	}
}

func TestLimiterWindowReset(t *testing.T) {
	l, now := newTestLimiter(2, time.Hour)

	if !l.Allow("client") || !l.Allow("client") {
		t.Fatal("first two requests should be allowed")
	}
	if l.Allow("client") {
		t.Fatal("third request should be rejected")
	}

	*now = now.Add(time.Hour + time.Second)

	if !l.Allow("client") {
		t.Fatal("first request after resetAt should be accepted")
	}
	// Counter restarted at 1, so one more fits under ceiling 2.
	if !l.Allow("client") {
		t.Fatal("second request of the fresh window should be accepted")
	}
	if l.Allow("client") {
		t.Fatal("fresh window must enforce the ceiling again")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Hour)

	if !l.Allow("a") {
		t.Fatal("client a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("client b has its own window")
	}
	if l.Allow("a") {
		t.Fatal("client a should now be rejected")
	}
}

func TestLimiterSweep(t *testing.T) {
	l, now := newTestLimiter(5, time.Hour)

	l.Allow("a")
	l.Allow("b")

	if removed := l.sweep(); removed != 0 {
		t.Fatalf("sweep removed %d live windows, want 0", removed)
	}

	*now = now.Add(2 * time.Hour)

	if removed := l.sweep(); removed != 2 {
		t.Fatalf("sweep removed %d windows, want 2", removed)
	}
}
