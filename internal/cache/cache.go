// internal/cache/cache.go
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"devtrack/internal/model"
)

// entry is one cached analysis. The cache is keyed by normalized repository
// URL, but an entry is only visible to the user that produced it: a lookup by
// any other user is a miss, never an error.
type entry struct {
	owner     uuid.UUID
	record    *model.RepositoryRecord
	expiresAt time.Time
}

// Cache is a small in-process TTL store for analysis results. Expired entries
// are evicted lazily on read and by a periodic background sweep between
// Start and Stop.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	ttl      time.Duration
	sweepIvl time.Duration
	logger   *slog.Logger

	done chan struct{}
	once sync.Once
}

// New creates a cache with the given entry TTL and sweep interval.
func New(ttl, sweepInterval time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		sweepIvl: sweepInterval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep. A stale read between expiry and sweep
// is fine: Get re-checks expiry itself.
func (c *Cache) Start() {
	go func() {
		ticker := time.NewTicker(c.sweepIvl)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweep. Safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}

// Get returns the cached record for url if it exists, has not expired, and is
// owned by userID.
func (c *Cache) Get(url string, userID uuid.UUID) (*model.RepositoryRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, url)
		return nil, false
	}
	if e.owner != userID {
		return nil, false
	}
	return e.record, true
}

// Set stores a record under url for userID with the configured TTL,
// replacing any previous entry for that URL.
func (c *Cache) Set(url string, userID uuid.UUID, record *model.RepositoryRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = entry{owner: userID, record: record, expiresAt: time.Now().Add(c.ttl)}
}

// Delete removes the entry for url regardless of owner.
func (c *Cache) Delete(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// Len reports the number of entries currently held, including any not yet
// swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	removed := 0
	for url, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, url)
			removed++
		}
	}
	remaining := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("Cache sweep evicted expired entries", "removed", removed, "remaining", remaining)
	}
}
