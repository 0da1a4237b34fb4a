package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolvax/portal/pkg/logger"
)

// Store counts requests per key within a fixed window.
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RateLimiter struct {
	store  Store
	window time.Duration
	log    logger.Logger
}

func NewRateLimiter(store Store, window time.Duration, log logger.Logger) *RateLimiter {
	return &RateLimiter{store: store, window: window, log: log}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.getKey(c)

		allowed, err := rl.store.Allow(c.Request.Context(), key)
		if err != nil {
			// fail open
			rl.log.Warn("Rate limit store unavailable",
				logger.Err(err),
				logger.Field{Key: "key", Value: key},
			)
			c.Next()
			return
		}

		if !allowed {
			retryAfter := int(math.Ceil(rl.window.Seconds()))
			c.Header("Retry-After", fmt.Sprint(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"details": fmt.Sprintf("Retry after %d seconds", retryAfter),
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	if userID, exists := c.Get(SubjectKey); exists {
		return fmt.Sprintf("user:%v", userID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

type MemoryStore struct {
	requests map[string]*bucket
	mu       sync.Mutex
	rate     int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

func NewMemoryStore(rate int, window time.Duration) *MemoryStore {
	s := &MemoryStore{
		requests: make(map[string]*bucket),
		rate:     rate,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.requests[key]
	now := s.now()

	if !exists || now.Sub(b.lastReset) > s.window {
		s.requests[key] = &bucket{
			tokens:    s.rate - 1,
			lastReset: now,
		}
		return true, nil
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}

	return false, nil
}

// Close stops the background eviction loop.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evict()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, b := range s.requests {
		if now.Sub(b.lastReset) > s.window*2 {
			delete(s.requests, key)
		}
	}
}
