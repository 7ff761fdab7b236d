package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key (a client address, an order
// id) and forgets buckets that have been idle for the expiry window.
type Limiter struct {
	burst   int
	rps     float64
	ttl     time.Duration
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewLimiter(burst int, expiryMinutes int, rps float64) *Limiter {
	l := &Limiter{
		burst:   burst,
		rps:     rps,
		ttl:     time.Duration(expiryMinutes) * time.Minute,
		buckets: make(map[string]*bucket),
	}
	go l.sweep()
	return l
}

func (l *Limiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.buckets[key] = b
	}
	b.seen = time.Now()
	return b.lim.Allow()
}

func (l *Limiter) sweep() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for key, b := range l.buckets {
			if time.Since(b.seen) > l.ttl {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// Every converts a per-event interval into a requests-per-second limit.
func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
