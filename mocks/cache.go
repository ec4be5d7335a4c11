package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache is an in-memory shardvault.Cache. Expiration is ignored; entries live
// until deleted.
type Cache struct {
	mu     sync.Mutex
	lookup map[string][]byte
}

// NewCache instantiates a new (mocked) cache.
func NewCache() *Cache {
	return &Cache{
		lookup: make(map[string][]byte),
	}
}

func (c *Cache) SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error {
	ba, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup[key] = ba
	return nil
}

func (c *Cache) GetStruct(ctx context.Context, key string, target any) (bool, error) {
	c.mu.Lock()
	ba, ok := c.lookup[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(ba, target)
}

func (c *Cache) Delete(ctx context.Context, keys []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := false
	for _, k := range keys {
		if _, ok := c.lookup[k]; ok {
			delete(c.lookup, k)
			deleted = true
		}
	}
	return deleted, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return nil
}
