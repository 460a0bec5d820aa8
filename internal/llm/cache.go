package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/rag"
	"github.com/hpungsan/murmur/internal/vector"
)

// Cache is a byte-value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// ConnectRedis dials addr and verifies the connection with PING.
func ConnectRedis(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedEmbedder serves repeated texts from a Cache.
// Cache errors are logged and treated as misses.
type CachedEmbedder struct {
	next      rag.Embedder
	cache     Cache
	ttl       time.Duration
	namespace string
	log       *logging.Logger
}

var _ rag.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next. namespace should identify the model and
// dimensionality so vectors from different embedding spaces never mix.
func NewCachedEmbedder(next rag.Embedder, cache Cache, namespace string, ttl time.Duration, log *logging.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, ttl: ttl, namespace: namespace, log: log}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "murmur:emb:" + c.namespace + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	b, ok, err := c.cache.Get(ctx, c.key(text))
	if err != nil {
		c.log.Warnf("embedding cache get: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	v, err := vector.Decode(b)
	if err != nil {
		c.log.Warnf("embedding cache entry unreadable: %v", err)
		return nil, false
	}
	return v, true
}

func (c *CachedEmbedder) store(ctx context.Context, text string, v []float32) {
	if err := c.cache.Set(ctx, c.key(text), vector.Encode(v), c.ttl); err != nil {
		c.log.Warnf("embedding cache set: %v", err)
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(ctx, text); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, text, v)
	return v, nil
}

// EmbedBatch sends only cache misses upstream, in one call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, t := range texts {
		if v, ok := c.lookup(ctx, t); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, v := range vecs {
		out[missIdx[j]] = v
		c.store(ctx, missTexts[j], v)
	}
	return out, nil
}
