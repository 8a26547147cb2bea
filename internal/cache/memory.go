package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bizadmin/backend/internal/logger"
)

const (
	DefaultTTL           = 30 * time.Second
	DefaultSweepInterval = 60 * time.Second
)

type entry struct {
	value      []byte
	insertedAt time.Time
}

// MemoryCache is a process-local TTL map. It has no size bound; expired entries
// linger until the next sweep.
type MemoryCache struct {
	mu            sync.RWMutex
	entries       map[string]entry
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

func NewMemoryCache(ttl, sweepInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &MemoryCache{
		entries:       make(map[string]entry),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.insertedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, insertedAt: c.now()}
	c.mu.Unlock()
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// Run sweeps on every interval until ctx is cancelled.
func (c *MemoryCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Cache sweeper stopped", nil)
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				logger.Debug("Cache sweep removed expired entries", map[string]interface{}{
					"removed": removed,
				})
			}
		}
	}
}
