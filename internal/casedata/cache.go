package casedata

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// indexKey is the singleflight key for List. Case keys are prefixed so no
// test case id can collide with it.
const indexKey = "index"

// Cache memoizes a Provider. Loads for the same id share one in-flight
// fetch and converge on the first record stored; failures are not
// cached. Safe for concurrent use.
type Cache struct {
	src   Provider
	group singleflight.Group

	mu      sync.Mutex
	gen     uint64
	entries map[string]*TestCase
	index   []Entry
	indexed bool
}

// NewCache wraps src.
func NewCache(src Provider) *Cache {
	return &Cache{src: src, entries: make(map[string]*TestCase)}
}

// List returns the memoized index, fetching it on first use.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	if c.indexed {
		idx := append([]Entry(nil), c.index...)
		c.mu.Unlock()
		return idx, nil
	}
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do(indexKey, func() (any, error) {
		entries, err := c.src.List(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.index = entries
			c.indexed = true
		}
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Entry(nil), v.([]Entry)...), nil
}

// Load returns the cached record for id, fetching it on a miss.
func (c *Cache) Load(ctx context.Context, id string) (*TestCase, error) {
	if tc, ok := c.Get(id); ok {
		return tc, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do("case:"+id, func() (any, error) {
		if tc, ok := c.Get(id); ok {
			return tc, nil
		}
		tc, err := c.src.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		return c.store(id, tc, gen), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TestCase), nil
}

// Get returns the cached record for id without fetching.
func (c *Cache) Get(id string) (*TestCase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tc, ok := c.entries[id]
	return tc, ok
}

// Invalidate drops every cached record and the memoized index, and
// forwards to the wrapped provider when it memoizes too. Fetches already
// in flight complete for their callers but are not stored.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[string]*TestCase)
	c.index = nil
	c.indexed = false
	c.mu.Unlock()

	if inv, ok := c.src.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

// store records tc unless an entry already exists or the cache was
// invalidated since the fetch began. The stored record is returned.
func (c *Cache) store(id string, tc *TestCase, gen uint64) *TestCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[id]; ok {
		return existing
	}
	if c.gen != gen {
		return tc
	}
	c.entries[id] = tc
	return tc
}
