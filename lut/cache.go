package lut

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/BeatGlow/epd/palette"
)

// DefaultCacheSize is the number of tables kept by [Default].
const DefaultCacheSize = 16

// Default is the process wide table cache.
var Default = NewCache(DefaultCacheSize)

// Get returns a table from the [Default] cache.
func Get(p *palette.Palette, space Space, bits int) (*Table, error) {
	return Default.Get(p, space, bits)
}

// Cache keeps the most recently used tables, keyed by palette, space and bits.
//
// A Cache is safe for concurrent use. Concurrent requests for a table that is not cached yet
// wait for a single build.
type Cache struct {
	mu     sync.Mutex
	tables *lru.Cache
	group  singleflight.Group
}

// NewCache returns a cache holding at most size tables.
func NewCache(size int) *Cache {
	if size < 1 {
		size = 1
	}
	c := &Cache{tables: lru.New(size)}
	c.tables.OnEvicted = func(key lru.Key, _ interface{}) {
		log.WithField("key", key).Debug("lut: evicted table")
	}
	return c
}

// Get returns the table for the distinct colors of p, building it if it isn't cached.
func (c *Cache) Get(p *palette.Palette, space Space, bits int) (*Table, error) {
	if p == nil {
		return nil, ErrNoColors
	}

	key := fmt.Sprintf("%s/%d/%s", space, bits, p.Key())
	if t, ok := c.lookup(key); ok {
		return t, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if t, ok := c.lookup(key); ok {
			return t, nil
		}
		t, err := Build(p.Distinct(), space, bits)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables.Add(key, t)
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// Len is the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables.Len()
}

func (c *Cache) lookup(key string) (*Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.tables.Get(key); ok {
		return v.(*Table), true
	}
	return nil, false
}
