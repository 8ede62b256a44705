package redactor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/redaction-gateway/internal/config"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

func testCacheConfig(size int) config.RedactorConfig {
	return config.RedactorConfig{
		CacheSize:       size,
		CacheTTLSeconds: 300,
		CacheMaxBody:    1024,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(nil, "t", testCacheConfig(4))
	ctx := context.Background()

	_, ok := cache.Get(ctx, "application/json", `{"a":1}`)
	require.False(t, ok)

	cache.Put(ctx, "application/json", `{"a":1}`, `{"a":"********"}`)

	got, ok := cache.Get(ctx, "application/json", `{"a":1}`)
	require.True(t, ok)
	require.Equal(t, `{"a":"********"}`, got)
}

func TestCacheKeyIncludesContentType(t *testing.T) {
	cache := NewCache(nil, "t", testCacheConfig(4))
	ctx := context.Background()

	cache.Put(ctx, "application/json", "body", "json-redacted")

	_, ok := cache.Get(ctx, "text/plain", "body")
	require.False(t, ok, "same body under another content type is a different entry")
}

func TestCacheExpiredEntryIsAMiss(t *testing.T) {
	cache := NewCache(nil, "t", testCacheConfig(4))
	cache.ttl = 5 * time.Millisecond
	ctx := context.Background()

	cache.Put(ctx, "text/plain", "body", "redacted")
	time.Sleep(10 * time.Millisecond)

	_, ok := cache.Get(ctx, "text/plain", "body")
	require.False(t, ok)
	require.Equal(t, 0, len(cache.items), "expired entry should be evicted on read")
}

func TestCacheEvictsLeastRecentlyAccessed(t *testing.T) {
	cache := NewCache(nil, "t", testCacheConfig(2))
	ctx := context.Background()

	cache.Put(ctx, "text/plain", "a", "ra")
	cache.Put(ctx, "text/plain", "b", "rb")

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.Get(ctx, "text/plain", "a")
	require.True(t, ok)

	cache.Put(ctx, "text/plain", "c", "rc")

	_, ok = cache.Get(ctx, "text/plain", "a")
	require.True(t, ok, "recently accessed entry must survive")
	_, ok = cache.Get(ctx, "text/plain", "b")
	require.False(t, ok, "least recently accessed entry must go first")
	_, ok = cache.Get(ctx, "text/plain", "c")
	require.True(t, ok)
}

func TestCacheSkipsOversizedBodies(t *testing.T) {
	cfg := testCacheConfig(4)
	cfg.CacheMaxBody = 8
	cache := NewCache(nil, "t", cfg)
	ctx := context.Background()

	big := "0123456789abcdef"
	cache.Put(ctx, "text/plain", big, "redacted")

	_, ok := cache.Get(ctx, "text/plain", big)
	require.False(t, ok)
	require.Equal(t, 0, len(cache.items))
}

type fakeCacheStore struct {
	mu     sync.Mutex
	values map[string]string
	fail   bool
}

func (s *fakeCacheStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", errors.New("connection refused")
	}
	val, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return val, nil
}

func (s *fakeCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection refused")
	}
	s.values[key] = value.(string)
	return nil
}

func TestCachePrefersSharedStore(t *testing.T) {
	store := &fakeCacheStore{values: make(map[string]string)}
	cache := NewCache(nil, "t", testCacheConfig(4))
	cache.remote = store
	ctx := context.Background()

	cache.Put(ctx, "text/plain", "body", "redacted")

	require.Equal(t, 1, len(store.values), "write should land in the shared store")
	require.Equal(t, 0, len(cache.items), "local backend stays untouched on shared-store success")

	got, ok := cache.Get(ctx, "text/plain", "body")
	require.True(t, ok)
	require.Equal(t, "redacted", got)
}

func TestCacheFallsBackToLocalWhenStoreDown(t *testing.T) {
	store := &fakeCacheStore{values: make(map[string]string), fail: true}
	cache := NewCache(nil, "t", testCacheConfig(4))
	cache.remote = store
	ctx := context.Background()

	cache.Put(ctx, "text/plain", "body", "redacted")

	got, ok := cache.Get(ctx, "text/plain", "body")
	require.True(t, ok, "local backend should carry the entry during an outage")
	require.Equal(t, "redacted", got)
}
