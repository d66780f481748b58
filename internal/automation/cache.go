package automation

import (
	"sync"
	"time"

	"github.com/mj1618/mobile-cli/internal/geometry"
)

// viewportEntry holds a cached viewport with its timestamp.
type viewportEntry struct {
	viewport  geometry.Viewport
	timestamp time.Time
}

// ViewportCache is a per-device TTL cache of viewport sizes. Screen size
// changes rarely, so actions skip a round trip per gesture.
type ViewportCache struct {
	mu      sync.Mutex
	entries map[string]viewportEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewViewportCache creates a new cache. A ttl of 0 disables caching.
func NewViewportCache(ttl time.Duration) *ViewportCache {
	return &ViewportCache{
		entries: make(map[string]viewportEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached viewport for deviceID if within TTL, otherwise
// calls read and stores the result.
func (c *ViewportCache) Get(deviceID string, read func() (geometry.Viewport, error)) (geometry.Viewport, error) {
	if c.ttl == 0 {
		return read()
	}

	c.mu.Lock()
	if entry, ok := c.entries[deviceID]; ok && c.now().Sub(entry.timestamp) < c.ttl {
		vp := entry.viewport
		c.mu.Unlock()
		return vp, nil
	}
	c.mu.Unlock()

	vp, err := read()
	if err != nil {
		return geometry.Viewport{}, err
	}

	c.mu.Lock()
	c.entries[deviceID] = viewportEntry{viewport: vp, timestamp: c.now()}
	c.mu.Unlock()

	return vp, nil
}

// Invalidate removes the entry for deviceID.
func (c *ViewportCache) Invalidate(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, deviceID)
}

// InvalidateAll clears the entire cache.
func (c *ViewportCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]viewportEntry)
}
