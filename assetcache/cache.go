// Package assetcache keeps a named, versioned cache of application shell
// assets and serves them cache-first, falling back to offline placeholders
// when the upstream is unreachable.
package assetcache

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/codec"
	gostore "github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/eapayk/quanlitien/config"
)

// CachedResponse is the serialized form of an upstream response. Only what
// is needed to replay the response verbatim is kept.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// NamedCache wraps a cache.Cache, prefixing every key with the cache name
// and tagging entries so a whole generation can be invalidated at once.
type NamedCache struct {
	name  string
	cache *cache.Cache[[]byte]
}

// NewNamedCache creates a named cache view over the given backend.
func NewNamedCache(backend *cache.Cache[[]byte], name string) *NamedCache {
	return &NamedCache{cache: backend, name: name}
}

// Name returns the cache generation name.
func (n *NamedCache) Name() string {
	return n.name
}

// WithName returns a view of the same backend under a different name.
func (n *NamedCache) WithName(name string) *NamedCache {
	return &NamedCache{cache: n.cache, name: name}
}

// Get retrieves a cached response by URL.
func (n *NamedCache) Get(ctx context.Context, url string) (CachedResponse, error) {
	data, err := n.cache.Get(ctx, n.name+":"+url)
	if err != nil {
		return CachedResponse{}, err
	}
	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return CachedResponse{}, err
	}
	return resp, nil
}

// Set stores a response under the URL, tagged with the cache name.
func (n *NamedCache) Set(ctx context.Context, url string, resp CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return n.cache.Set(ctx, n.name+":"+url, data, gostore.WithTags([]string{n.name}))
}

// Drop invalidates every entry tagged with this cache generation's name.
func (n *NamedCache) Drop(ctx context.Context) error {
	return n.cache.Invalidate(ctx, gostore.WithInvalidateTags([]string{n.name}))
}

// GetStats returns the backend cache statistics.
func (n *NamedCache) GetStats() *codec.Stats {
	return n.cache.GetCodec().GetStats()
}

// NewBackend builds the cache backend selected by the config.
func NewBackend(cfg *config.CacheConfig) *cache.Cache[[]byte] {
	if cfg != nil && cfg.Type == config.CacheTypeRedis {
		return newRedisCache(cfg)
	}
	return newMemoryCache()
}

func newMemoryCache() *cache.Cache[[]byte] {
	// Entries never expire by ttl, Activate is the only eviction path.
	gocacheClient := gocache.New(gocache.NoExpiration, gocache.NoExpiration)
	gocacheStore := go_store.NewGoCache(gocacheClient)
	return cache.New[[]byte](gocacheStore)
}

func newRedisCache(cfg *config.CacheConfig) *cache.Cache[[]byte] {
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	redisStore := redis_store.NewRedis(redisClient)
	return cache.New[[]byte](redisStore)
}
