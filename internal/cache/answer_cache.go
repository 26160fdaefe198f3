package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conorfennell/studyplan/internal/domain"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// AnswerCache keeps generated answers in Redis, keyed by question hash.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnswerCache creates a new answer cache. A non-positive ttl means DefaultTTL.
func NewAnswerCache(client *redis.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AnswerCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *AnswerCache) key(hash string) string {
	return fmt.Sprintf("answer:%s", hash)
}

func (c *AnswerCache) PutAnswer(ctx context.Context, hash string, a domain.CachedAnswer) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(hash), data, c.ttl).Err()
}

func (c *AnswerCache) GetAnswer(ctx context.Context, hash string) (*domain.CachedAnswer, error) {
	data, err := c.client.Get(ctx, c.key(hash)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a domain.CachedAnswer
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, err
	}
	return &a, nil
}
