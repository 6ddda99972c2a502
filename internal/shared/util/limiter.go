package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket refilled at a fixed rate.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows perSecond events per second with bursts of up to burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{inner: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// PerMinute allows n events per minute, one at a time.
func PerMinute(n int) *Limiter {
	return NewLimiter(float64(n)/60, 1)
}

func (l *Limiter) Allow() bool {
	return l.inner.Allow()
}

func (l *Limiter) Wait(ctx context.Context) error {
	return l.inner.Wait(ctx)
}

// KeyedLimiter hands out one Limiter per key, such as a client address.
// Keys idle for longer than ttl are dropped on a later lookup.
type KeyedLimiter struct {
	mu        sync.Mutex
	perSecond float64
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*keyedEntry
}

type keyedEntry struct {
	limiter  *Limiter
	lastSeen time.Time
}

func NewKeyedLimiter(perSecond float64, burst int, ttl time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		perSecond: perSecond,
		burst:     burst,
		ttl:       ttl,
		now:       time.Now,
		entries:   make(map[string]*keyedEntry),
	}
}

// Allow reports whether key may perform one more event now.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.limiter(key).Allow()
}

func (k *KeyedLimiter) limiter(key string) *Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if k.ttl > 0 && now.Sub(k.lastSweep) >= k.ttl/2 {
		for name, e := range k.entries {
			if now.Sub(e.lastSeen) > k.ttl {
				delete(k.entries, name)
			}
		}
		k.lastSweep = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{limiter: NewLimiter(k.perSecond, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len returns the number of keys currently tracked.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
