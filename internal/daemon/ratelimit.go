package daemon

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimiter implements a simple token bucket rate limiter per client IP.
type RateLimiter struct {
	clients   sync.Map // map[string]*tokenBucket
	rate      int      // requests per minute
	burst     int      // burst capacity
	stop      chan struct{}
	closeOnce sync.Once
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing `rate` requests per minute
// with a burst capacity of `burst`.
func NewRateLimiter(rate, burst int) *RateLimiter {
	rl := &RateLimiter{
		rate:  rate,
		burst: burst,
		stop:  make(chan struct{}),
	}

	// Evict idle buckets so the map does not grow without bound.
	go rl.cleanup()

	return rl
}

// Close stops the background eviction goroutine.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.stop)
	})
}

// Allow checks whether a request from the given client should be allowed.
func (rl *RateLimiter) Allow(clientIP string) bool {
	bucketInterface, _ := rl.clients.LoadOrStore(clientIP, &tokenBucket{
		tokens:     float64(rl.burst),
		lastRefill: time.Now(),
	})
	bucket := bucketInterface.(*tokenBucket)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)

	// Refill tokens based on elapsed time
	tokensToAdd := elapsed.Minutes() * float64(rl.rate)
	bucket.tokens += tokensToAdd
	if bucket.tokens > float64(rl.burst) {
		bucket.tokens = float64(rl.burst)
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}

	return false
}

// cleanup periodically removes stale client buckets.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-30 * time.Minute)
			rl.clients.Range(func(key, value any) bool {
				bucket := value.(*tokenBucket)
				bucket.mu.Lock()
				stale := bucket.lastRefill.Before(cutoff)
				bucket.mu.Unlock()
				if stale {
					rl.clients.Delete(key)
				}
				return true
			})
		}
	}
}

// TrackedClients returns the number of client buckets currently held.
func (rl *RateLimiter) TrackedClients() int {
	count := 0
	rl.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// RateLimitMiddleware applies per-IP rate limiting to incoming requests.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			logrus.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"path":      c.Request.URL.Path,
			}).Warn("Rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
