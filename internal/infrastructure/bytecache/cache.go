// Package bytecache keeps raw uploads in memory for the lifetime of a session.
// Nothing here survives a restart.
package bytecache

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

type entry struct {
	file      domain.SourceFile
	expiresAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// New returns a cache whose entries expire after ttl. A non-positive ttl disables expiry.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) Put(id string, file domain.SourceFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	c.entries[id] = entry{file: file, expiresAt: expiresAt}
}

// Get treats expired entries as absent.
func (c *Cache) Get(id string) (domain.SourceFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return domain.SourceFile{}, false
	}
	if c.expired(e) {
		delete(c.entries, id)
		return domain.SourceFile{}, false
	}
	return e.file, true
}

func (c *Cache) Delete(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops expired entries and reports how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps on every tick until ctx is done.
func (c *Cache) RunJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}
