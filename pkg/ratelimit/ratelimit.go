package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter is an injectable fixed-window request counter keyed by client.
// It replaces process-global counter maps so instances can be constructed per
// deployment (or swapped for an external counter service) and unit tested.
type Limiter struct {
	mu           sync.Mutex
	buckets      map[string]*bucket
	limit        int
	window       time.Duration
	requestCount int

	// now is swapped in tests.
	now func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

const (
	cleanupEvery  = 100
	cleanupAtSize = 200
)

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether the given key may make another request in the
// current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Deterministic cleanup keeps the map bounded without a background
	// goroutine.
	l.requestCount++
	if l.requestCount%cleanupEvery == 0 || len(l.buckets) > cleanupAtSize {
		for k, b := range l.buckets {
			if now.After(b.resetAt) {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

// Middleware rejects requests over the per-IP limit with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
