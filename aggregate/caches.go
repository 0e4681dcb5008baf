package aggregate

import (
	"sync"

	"github.com/romsan-app/romsan/source"
)

// Caches holds the engine's memoized platform and region unions. It is an
// explicitly owned object with Clear as its only mutator; nothing expires on a
// timer, callers own staleness tolerance.
type Caches struct {
	mu        sync.Mutex
	platforms []source.Platform
	regions   map[string]string
}

// NewCaches constructs an empty cache set.
func NewCaches() *Caches {
	return &Caches{}
}

// Clear drops every memoized value; the next call recomputes from sources.
func (c *Caches) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.platforms = nil
	c.regions = nil
}
