package redactor

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/aman-churiwal/redaction-gateway/internal/config"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

// Store is the subset of the shared-store client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cache maps (content type, body) to a previously redacted body so
// identical payloads don't hit the model twice. The shared store is
// preferred when connected; the local backend is an LRU with per-entry
// TTLs behind a single mutex.
type Cache struct {
	remote  Store // nil when no shared store is connected
	prefix  string
	ttl     time.Duration
	maxSize int
	maxBody int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
}

type cacheEntry struct {
	key        string
	insertedAt time.Time
	value      string
}

func NewCache(redis *storage.RedisClient, prefix string, cfg config.RedactorConfig) *Cache {
	cache := &Cache{
		prefix:  prefix,
		ttl:     cfg.CacheTTL(),
		maxSize: cfg.CacheSize,
		maxBody: cfg.CacheMaxBody,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
	if redis != nil {
		cache.remote = redis
	}
	return cache
}

// Looks up a previously redacted body. A local hit past its TTL counts
// as a miss and is evicted; shared-store hits rely on the store's own
// expiry and are trusted as-is.
func (c *Cache) Get(ctx context.Context, contentType, body string) (string, bool) {
	if len(body) > c.maxBody {
		return "", false
	}

	key := fingerprint(contentType, body)

	if c.remote != nil {
		if val, err := c.remote.Get(ctx, c.remoteKey(key)); err == nil {
			return val, true
		}
		// Miss or store trouble either way: try the local backend.
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return "", false
	}

	entry := element.Value.(*cacheEntry)
	if time.Since(entry.insertedAt) > c.ttl {
		c.order.Remove(element)
		delete(c.items, key)
		return "", false
	}

	c.order.MoveToFront(element)
	return entry.value, true
}

// Stores a redacted body. Oversized inputs are never cached; the cache
// exists for repeated small and medium payloads, not large exports.
func (c *Cache) Put(ctx context.Context, contentType, body, redacted string) {
	if len(body) > c.maxBody {
		return
	}

	key := fingerprint(contentType, body)

	if c.remote != nil {
		if err := c.remote.Set(ctx, c.remoteKey(key), redacted, c.ttl); err == nil {
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		element.Value.(*cacheEntry).value = redacted
		element.Value.(*cacheEntry).insertedAt = time.Now()
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&cacheEntry{
		key:        key,
		insertedAt: time.Now(),
		value:      redacted,
	})
	c.items[key] = element

	for len(c.items) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *Cache) remoteKey(key string) string {
	return fmt.Sprintf("%s:aicache:%s", c.prefix, key)
}

func fingerprint(contentType, body string) string {
	h := sha256.New()
	h.Write([]byte(contentType))
	h.Write([]byte("\n"))
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
