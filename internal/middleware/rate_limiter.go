package middleware

import (
	"sync"
	"time"
)

// RateLimiter implements a simple in-memory fixed-window rate limiter
type RateLimiter struct {
	userLimits map[string]*windowLimit
	ipLimits   map[string]*windowLimit
	mu         sync.RWMutex

	userMaxRequests int
	ipMaxRequests   int
	window          time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type windowLimit struct {
	requests  int
	resetTime time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(userMaxRequests, ipMaxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		userLimits:      make(map[string]*windowLimit),
		ipLimits:        make(map[string]*windowLimit),
		userMaxRequests: userMaxRequests,
		ipMaxRequests:   ipMaxRequests,
		window:          window,
		stop:            make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// CheckUserLimit checks if user has exceeded rate limit
func (rl *RateLimiter) CheckUserLimit(userID string) bool {
	return rl.check(rl.userLimits, userID, rl.userMaxRequests)
}

// CheckIPLimit checks if IP has exceeded rate limit
func (rl *RateLimiter) CheckIPLimit(ip string) bool {
	return rl.check(rl.ipLimits, ip, rl.ipMaxRequests)
}

func (rl *RateLimiter) check(limits map[string]*windowLimit, key string, max int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	limit, exists := limits[key]
	if !exists || now.After(limit.resetTime) {
		limits[key] = &windowLimit{
			requests:  1,
			resetTime: now.Add(rl.window),
		}
		return true
	}

	if limit.requests >= max {
		return false
	}

	limit.requests++
	return true
}

// GetUserRemaining returns remaining requests for user
func (rl *RateLimiter) GetUserRemaining(userID string) int {
	return rl.remaining(rl.userLimits, userID, rl.userMaxRequests)
}

// GetIPRemaining returns remaining requests for IP
func (rl *RateLimiter) GetIPRemaining(ip string) int {
	return rl.remaining(rl.ipLimits, ip, rl.ipMaxRequests)
}

func (rl *RateLimiter) remaining(limits map[string]*windowLimit, key string, max int) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	limit, exists := limits[key]
	if !exists || time.Now().After(limit.resetTime) {
		return max
	}

	remaining := max - limit.requests
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		now := time.Now()
		for key, limit := range rl.userLimits {
			if now.After(limit.resetTime) {
				delete(rl.userLimits, key)
			}
		}
		for key, limit := range rl.ipLimits {
			if now.After(limit.resetTime) {
				delete(rl.ipLimits, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.userLimits = make(map[string]*windowLimit)
	rl.ipLimits = make(map[string]*windowLimit)
}
