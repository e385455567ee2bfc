package cache

import (
	"sync"
	"time"
)

// TokenCache is a single-slot, thread-safe cache for a bearer token
// with a TTL. The process holds exactly one authority token at a time.
type TokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewTokenCache returns an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Get returns the cached token if one is present and unexpired.
func (c *TokenCache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Set stores a token that expires after ttl.
func (c *TokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.expiresAt = time.Now().Add(ttl)
}

// Clear drops the cached token, forcing the next Get to miss.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}
