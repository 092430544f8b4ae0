// Package ratelimit implements a per-client fixed-window submission throttle.
// State is process-local; the guarantee is best-effort abuse mitigation, not
// billing-grade accounting. A shared counter store can replace the map behind
// the same Allow interface when running multiple instances.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// window tracks requests observed for one client in the current period.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter throttles clients to a fixed ceiling per window. Windows are
// replaced, not slid: once resetAt passes, the next request starts a fresh
// window with count 1.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	ceiling int
	period  time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// New constructs a Limiter.
func New(ceiling int, period time.Duration, logger zerolog.Logger) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		ceiling: ceiling,
		period:  period,
		now:     time.Now,
		logger:  logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow records a request for the client and reports whether it is within
// the ceiling. Requests beyond the ceiling do not advance the counter.
func (l *Limiter) Allow(clientID string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok || now.After(w.resetAt) {
		l.windows[clientID] = &window{count: 1, resetAt: now.Add(l.period)}
		return true
	}

	if w.count >= l.ceiling {
		l.logger.Warn().Str("client", clientID).Int("count", w.count).Msg("rate limit exceeded")
		return false
	}

	w.count++
	return true
}

// Run prunes expired windows on the given interval until ctx is cancelled.
// Without it the map grows by one entry per distinct client forever.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed := l.sweep()
			if removed > 0 {
				l.logger.Debug().Int("removed", removed).Msg("pruned expired rate limit windows")
			}
		}
	}
}

func (l *Limiter) sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// SetNow overrides the clock. Test hook.
func (l *Limiter) SetNow(now func() time.Time) {
	l.now = now
}
