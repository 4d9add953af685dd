package keys

import (
	"sync"
	"sync/atomic"
	"time"
)

// AuthCache is a TTL-based in-memory cache for authenticated agent contexts.
// Uses sync.Map for lock-free reads on the hot path.
//
// Stale-while-revalidate: when an entry expires, Get() still returns the stale
// value immediately and signals that a background refresh is needed, so no
// invocation blocks on DB + bcrypt after the first cold start.
type AuthCache struct {
	store sync.Map // map[string]*cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	agent      *AgentContext
	expiresAt  time.Time
	refreshing atomic.Bool // prevents duplicate background refreshes
}

// NewAuthCache creates a cache with the given TTL.
func NewAuthCache(ttl time.Duration) *AuthCache {
	return &AuthCache{ttl: ttl}
}

// GetResult holds the result of a cache lookup.
type GetResult struct {
	Agent        *AgentContext
	Hit          bool // a value was found, fresh or stale
	NeedsRefresh bool // entry is expired and the caller won the refresh slot
}

// Get looks up the API key in the cache.
//
// Returns:
//   - Fresh hit:  {Agent, Hit=true,  NeedsRefresh=false}
//   - Stale hit:  {Agent, Hit=true,  NeedsRefresh=true}  (serve stale, refresh in background)
//   - Miss:       {nil,   Hit=false, NeedsRefresh=false}
//
// The refreshing flag is set atomically so only one goroutine refreshes per key.
func (c *AuthCache) Get(apiKey string) GetResult {
	val, ok := c.store.Load(apiKey)
	if !ok {
		return GetResult{}
	}

	entry := val.(*cacheEntry)

	if time.Now().Before(entry.expiresAt) {
		return GetResult{Agent: entry.agent, Hit: true}
	}

	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return GetResult{
		Agent:        entry.agent,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores an agent context in the cache with the configured TTL.
func (c *AuthCache) Set(apiKey string, agent *AgentContext) {
	c.store.Store(apiKey, &cacheEntry{
		agent:     agent,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes an entry from the cache.
func (c *AuthCache) Delete(apiKey string) {
	c.store.Delete(apiKey)
}
