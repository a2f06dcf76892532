package osrm

import (
	"sync"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// snapCache is a bounded FIFO cache for nearest-road lookups. Snapped
// positions never change for a given coordinate and profile, so eviction
// order does not matter; FIFO keeps it trivially correct under the lock.
type snapCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]domain.GeoPoint
	order    []string
}

func newSnapCache(capacity int) *snapCache {
	if capacity <= 0 {
		capacity = 4096
	}
	return &snapCache{
		capacity: capacity,
		items:    make(map[string]domain.GeoPoint, capacity),
	}
}

func (c *snapCache) get(key string) (domain.GeoPoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pt, ok := c.items[key]
	return pt, ok
}

func (c *snapCache) put(key string, pt domain.GeoPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.items[key] = pt
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}

	c.items[key] = pt
	c.order = append(c.order, key)
}

func (c *snapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
