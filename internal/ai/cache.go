package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"chatdocs-rag/internal/logger"
)

// CachedEmbedder wraps an Embedder with a Redis content-hash cache so that
// re-ingesting the same document does not burn provider quota. Cache errors
// degrade to a direct backend call, never to an ingestion failure.
type CachedEmbedder struct {
	backend Embedder
	rdb     *redis.Client
	ttl     time.Duration
}

func NewCachedEmbedder(backend Embedder, rdb *redis.Client, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{backend: backend, rdb: rdb, ttl: ttl}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := c.backend.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Debug("Embedding cache write failed", "error", err)
		}
	}

	return vec, nil
}
