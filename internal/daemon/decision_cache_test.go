package daemon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecisionCache(t *testing.T) {
	cache := NewDecisionCache(time.Minute)

	assert.False(t, cache.Get("alice", "viewer", "resource:a/b/c/d"))

	cache.Add("alice", "viewer", "resource:a/b/c/d")
	assert.True(t, cache.Get("alice", "viewer", "resource:a/b/c/d"))

	// Different relation or user misses.
	assert.False(t, cache.Get("alice", "editor", "resource:a/b/c/d"))
	assert.False(t, cache.Get("bob", "viewer", "resource:a/b/c/d"))
}

func TestDecisionCacheExpiry(t *testing.T) {
	cache := NewDecisionCache(10 * time.Millisecond)

	cache.Add("alice", "viewer", "resource:a/b/c/d")
	assert.True(t, cache.Get("alice", "viewer", "resource:a/b/c/d"))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cache.Get("alice", "viewer", "resource:a/b/c/d"))
	assert.Equal(t, 0, cache.Len(), "expired entry should be evicted on read")
}

func TestDecisionCacheInvalidate(t *testing.T) {
	cache := NewDecisionCache(time.Minute)

	cache.Add("alice", "viewer", "resource:a/b/c/d")
	cache.Add("bob", "editor", "resource:a/b/c/d")
	cache.Add("alice", "viewer", "resource:x/y/z/w")

	cache.Invalidate("resource:a/b/c/d")

	assert.False(t, cache.Get("alice", "viewer", "resource:a/b/c/d"))
	assert.False(t, cache.Get("bob", "editor", "resource:a/b/c/d"))
	assert.True(t, cache.Get("alice", "viewer", "resource:x/y/z/w"))
}

func TestDecisionCacheDisabled(t *testing.T) {
	cache := NewDecisionCache(0)
	assert.Nil(t, cache)

	// Nil receivers are safe no-ops.
	cache.Add("alice", "viewer", "resource:a/b/c/d")
	assert.False(t, cache.Get("alice", "viewer", "resource:a/b/c/d"))
	cache.Invalidate("resource:a/b/c/d")
	assert.Equal(t, 0, cache.Len())
}
