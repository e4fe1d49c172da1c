package burnindex

import (
	"sync"
)

// TotalCache is a small entry-capped cache of per-burner totals. Each entry
// carries the sequence ID of the burn that produced it, and an older version
// never replaces a newer one. Eviction is FIFO by first insertion.
type TotalCache struct {
	capEntries int
	mu         sync.Mutex
	items      map[string]totalEntry
	order      []string
}

type totalEntry struct {
	ver   uint64
	total uint64
}

// NewTotalCache returns a cache holding at most entries burners, or nil
// (a valid, always-missing cache) when entries <= 0.
func NewTotalCache(entries int) *TotalCache {
	if entries <= 0 {
		return nil
	}
	return &TotalCache{capEntries: entries, items: make(map[string]totalEntry, entries)}
}

// Get returns the cached total for burner if present.
func (c *TotalCache) Get(burner string) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[burner]
	return e.total, ok
}

// GetWithVersion returns (version, total, ok) for burner.
func (c *TotalCache) GetWithVersion(burner string) (uint64, uint64, bool) {
	if c == nil {
		return 0, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[burner]
	return e.ver, e.total, ok
}

// Set publishes total for burner at version ver. Call only after the write
// that produced total has committed.
func (c *TotalCache) Set(burner string, ver, total uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[burner]; ok {
		if e.ver >= ver {
			return
		}
		c.items[burner] = totalEntry{ver: ver, total: total}
		return
	}
	for len(c.items) >= c.capEntries && len(c.order) > 0 {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.items, evict)
	}
	c.items[burner] = totalEntry{ver: ver, total: total}
	c.order = append(c.order, burner)
}

// Len reports how many burners are cached.
func (c *TotalCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
