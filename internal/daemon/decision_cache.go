package daemon

import (
	"fmt"
	"sync"
	"time"
)

// DecisionCache caches positive authorization decisions for a short TTL so
// bursts of requests against the same resource do not hammer the
// authorization server. Only allowed decisions are cached; denials are
// always re-checked so newly granted access takes effect immediately.
type DecisionCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
}

// NewDecisionCache creates a cache with the given TTL. A zero or negative
// TTL disables caching and returns nil.
func NewDecisionCache(ttl time.Duration) *DecisionCache {
	if ttl <= 0 {
		return nil
	}
	return &DecisionCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

func decisionKey(userID, relation, object string) string {
	return fmt.Sprintf("%s|%s|%s", userID, relation, object)
}

// Get reports whether an allowed decision for the triple is cached and
// still fresh.
func (dc *DecisionCache) Get(userID, relation, object string) bool {
	if dc == nil {
		return false
	}

	key := decisionKey(userID, relation, object)

	dc.mu.RLock()
	expiry, ok := dc.entries[key]
	dc.mu.RUnlock()

	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		dc.mu.Lock()
		delete(dc.entries, key)
		dc.mu.Unlock()
		return false
	}
	return true
}

// Add records an allowed decision for the triple.
func (dc *DecisionCache) Add(userID, relation, object string) {
	if dc == nil {
		return
	}

	key := decisionKey(userID, relation, object)

	dc.mu.Lock()
	dc.entries[key] = time.Now().Add(dc.ttl)
	dc.mu.Unlock()
}

// Invalidate drops every cached decision touching the given object. Called
// after grants are revoked or a resource is deleted.
func (dc *DecisionCache) Invalidate(object string) {
	if dc == nil {
		return
	}

	suffix := "|" + object

	dc.mu.Lock()
	for key := range dc.entries {
		if len(key) >= len(suffix) && key[len(key)-len(suffix):] == suffix {
			delete(dc.entries, key)
		}
	}
	dc.mu.Unlock()
}

// Len returns the number of cached decisions, expired entries included.
func (dc *DecisionCache) Len() int {
	if dc == nil {
		return 0
	}
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return len(dc.entries)
}
