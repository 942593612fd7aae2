package security

import (
	"errors"
	"sync"
	"time"

	"puzzlepals/internal/clock"
)

// ErrTooManyAttempts is returned while a key is locked out after repeated failures
var ErrTooManyAttempts = errors.New("too many attempts, try again later")

// AttemptLimiter counts failed attempts per key within a fixed window
type AttemptLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     int           // failures allowed per window
	window   time.Duration // time window
	clock    clock.Clock
}

type visitor struct {
	failures    int
	windowStart time.Time
}

// NewAttemptLimiter creates a limiter allowing rate failures per window
func NewAttemptLimiter(rate int, window time.Duration, clk clock.Clock) *AttemptLimiter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &AttemptLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		clock:    clk,
	}
}

// Allow returns ErrTooManyAttempts if key used up its failures in the current window
func (l *AttemptLimiter) Allow(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		return nil
	}
	if l.clock.Now().Sub(v.windowStart) >= l.window {
		delete(l.visitors, key)
		return nil
	}
	if v.failures >= l.rate {
		return ErrTooManyAttempts
	}
	return nil
}

// Fail records a failed attempt for key
func (l *AttemptLimiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	v, ok := l.visitors[key]
	if !ok || now.Sub(v.windowStart) >= l.window {
		v = &visitor{windowStart: now}
		l.visitors[key] = v
	}
	v.failures++
	l.cleanup(now)
}

// Reset forgets the failures recorded for key
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.visitors, key)
}

// cleanup removes stale entries; callers hold mu
func (l *AttemptLimiter) cleanup(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.windowStart) > l.window*2 {
			delete(l.visitors, key)
		}
	}
}
