package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache is a thread-safe in-process key/value store with optional TTL and
// tag-based invalidation. The zero value is not usable; call New.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	tags  map[string]map[string]struct{}
	now   func() time.Time
}

type entry struct {
	value     interface{}
	expiresAt time.Time // zero means no expiration
	tags      []string
}

func New() *Cache {
	return &Cache{
		items: make(map[string]entry),
		tags:  make(map[string]map[string]struct{}),
		now:   time.Now,
	}
}

// Set stores value under key. A ttl <= 0 never expires.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
	e := entry{value: value, tags: tags}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.items[key] = e
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) GetOrDefault(key string, def interface{}) interface{} {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

func (c *Cache) Delete(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.deleteLocked(k)
	}
}

func (c *Cache) deleteLocked(key string) {
	e, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	for _, tag := range e.tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

// DeleteByTag drops every entry carrying one of tags.
func (c *Cache) DeleteByTag(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for key := range c.tags[tag] {
			c.deleteLocked(key)
		}
		delete(c.tags, tag)
	}
}

// KeysByTag returns the keys currently tagged with tag.
func (c *Cache) KeysByTag(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.tags[tag]))
	for k := range c.tags[tag] {
		keys = append(keys, k)
	}
	return keys
}

// Flush removes everything.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
	c.tags = make(map[string]map[string]struct{})
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Key joins parts into a composite cache key.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprintf("%v", p)
	}
	return strings.Join(s, "|")
}
