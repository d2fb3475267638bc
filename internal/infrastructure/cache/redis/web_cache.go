package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/core/ports"
)

type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// WebSearchCache serves repeated web searches from Redis. Cache failures
// never fail the search; they fall through to the wrapped searcher.
type WebSearchCache struct {
	next   ports.WebSearcher
	store  store
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewWebSearchCache(next ports.WebSearcher, client *redis.Client, ttl time.Duration, logger *slog.Logger) *WebSearchCache {
	return newWebSearchCache(next, client, ttl, logger)
}

func newWebSearchCache(next ports.WebSearcher, s store, ttl time.Duration, logger *slog.Logger) *WebSearchCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &WebSearchCache{
		next:   next,
		store:  s,
		ttl:    ttl,
		prefix: "legal-assistant:websearch:",
		logger: logger,
	}
}

func (c *WebSearchCache) Search(ctx context.Context, query string, limit int) ([]domain.CandidateDocument, error) {
	key := c.key(query, limit)

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var docs []domain.CandidateDocument
		decodeErr := json.Unmarshal(raw, &docs)
		if decodeErr == nil {
			return docs, nil
		}
		c.logger.Warn("websearch_cache_decode_failed", "error", decodeErr)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("websearch_cache_get_failed", "error", err)
	}

	docs, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return docs, nil
	}

	payload, err := json.Marshal(docs)
	if err != nil {
		c.logger.Warn("websearch_cache_encode_failed", "error", err)
		return docs, nil
	}
	if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("websearch_cache_set_failed", "error", err)
	}
	return docs, nil
}

func (c *WebSearchCache) key(query string, limit int) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", limit, normalized)))
	return c.prefix + hex.EncodeToString(sum[:])
}
