package ratelimit

import (
    "sync"
    "time"
)

// Limiter is a per-key token bucket. The bot endpoints key it by caller
// address so one noisy chat client cannot starve the rest.
type Limiter struct {
    mu      sync.Mutex
    buckets map[string]*tokenBucket
}

type tokenBucket struct {
    tokens   float64
    capacity float64
    refill   float64 // tokens per second
    touched  time.Time
}

func New() *Limiter {
    return &Limiter{buckets: make(map[string]*tokenBucket)}
}

// Allow consumes one token for key if available. The first call for a key
// starts it at full capacity.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
    now := time.Now()

    l.mu.Lock()
    defer l.mu.Unlock()

    b, ok := l.buckets[key]
    if !ok {
        b = &tokenBucket{tokens: capacity, capacity: capacity, refill: refillPerSec, touched: now}
        l.buckets[key] = b
    }

    if elapsed := now.Sub(b.touched).Seconds(); elapsed > 0 {
        b.tokens = min(b.capacity, b.tokens+elapsed*b.refill)
        b.touched = now
    }

    if b.tokens < 1 {
        return false
    }
    b.tokens--
    return true
}
