package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ewdlop/DarkWebNote/internal/config"
)

// OriginLimiter enforces politeness per origin (scheme+host): a minimum
// spacing between successive requests, plus an optional token bucket.
type OriginLimiter struct {
	delay       time.Duration
	rateCfg     config.RateLimitConfig
	rateEnabled bool

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewOriginLimiter creates a limiter with per-origin spacing and optional
// rate limiting. A zero delay with rate limiting disabled yields a no-op
// limiter.
func NewOriginLimiter(delay time.Duration, rateCfg config.RateLimitConfig) *OriginLimiter {
	limiter := &OriginLimiter{delay: delay, rateCfg: rateCfg}
	if delay > 0 {
		limiter.last = make(map[string]time.Time)
	}
	if rateCfg.Enabled() {
		limiter.rateEnabled = true
		limiter.limiters = make(map[string]*rate.Limiter)
		if limiter.last == nil {
			limiter.last = make(map[string]time.Time)
		}
	}
	return limiter
}

// Wait blocks until politeness constraints for the origin are satisfied or
// the context is cancelled.
func (l *OriginLimiter) Wait(ctx context.Context, origin string) error {
	if l == nil || origin == "" {
		return nil
	}
	origin = strings.ToLower(origin)

	if l.delay <= 0 && !l.rateEnabled {
		return nil
	}

	var sleep time.Duration
	var limiter *rate.Limiter
	now := time.Now()

	l.mu.Lock()
	if l.delay > 0 {
		if last, ok := l.last[origin]; ok {
			rest := last.Add(l.delay).Sub(now)
			if rest > 0 {
				sleep = rest
			}
		}
	}
	if l.rateEnabled {
		limiter = l.ensureLimiterLocked(origin)
	}
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	if l.last != nil {
		l.last[origin] = time.Now()
	}
	l.mu.Unlock()
	return nil
}

func (l *OriginLimiter) ensureLimiterLocked(origin string) *rate.Limiter {
	limiter, ok := l.limiters[origin]
	if ok {
		return limiter
	}
	interval := l.rateCfg.Window.Duration / time.Duration(l.rateCfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	burst := l.rateCfg.Requests
	if burst <= 0 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Every(interval), burst)
	l.limiters[origin] = limiter
	return limiter
}
