package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoCache keeps one ristretto cache per namespace so that evicting a
// namespace never touches the others.
type RistrettoCache struct {
	mu         sync.Mutex
	namespaces map[string]*ristretto.Cache
	maxEntries int64
}

func NewRistrettoCache(maxEntries int64) *RistrettoCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &RistrettoCache{
		namespaces: make(map[string]*ristretto.Cache),
		maxEntries: maxEntries,
	}
}

func (c *RistrettoCache) namespace(name string) (*ristretto.Cache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rc, ok := c.namespaces[name]; ok {
		return rc, nil
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: c.maxEntries * 10,
		MaxCost:     c.maxEntries, // every entry costs 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache namespace %s: %w", name, err)
	}
	c.namespaces[name] = rc
	return rc, nil
}

func (c *RistrettoCache) Get(ctx context.Context, namespace, key string) (any, bool) {
	rc, err := c.namespace(namespace)
	if err != nil {
		return nil, false
	}
	return rc.Get(key)
}

// Set waits for the write buffer so a following Get observes the value.
func (c *RistrettoCache) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	rc, err := c.namespace(namespace)
	if err != nil {
		return err
	}
	rc.SetWithTTL(key, value, 1, ttl)
	rc.Wait()
	return nil
}

func (c *RistrettoCache) EvictAll(ctx context.Context, namespace string) error {
	c.mu.Lock()
	rc, ok := c.namespaces[namespace]
	c.mu.Unlock()
	if ok {
		rc.Clear()
	}
	return nil
}

func (c *RistrettoCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, rc := range c.namespaces {
		rc.Close()
		delete(c.namespaces, name)
	}
}
