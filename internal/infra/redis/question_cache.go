package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizwhiz-service/internal/opentdb"
	"quizwhiz-service/internal/questionbank"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches raw question batches in Redis and falls back to the
// wrapped source on a miss. Batches are stored as JSON under
// quiz:questions:{categoryID}:{amount}. Raw records keep their HTML escaping;
// decoding and shuffling stay in the adapter so cached batches never pin an
// option order.
type QuestionCache struct {
	client *redis.Client
	source questionbank.Source
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, source questionbank.Source, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Fetch(ctx context.Context, categoryID, amount int) ([]opentdb.RawQuestion, error) {
	key := c.key(categoryID, amount)

	if records, ok := c.lookup(ctx, key); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if records, ok := c.lookup(ctx, key); ok {
			return records, nil
		}

		records, err := c.source.Fetch(ctx, categoryID, amount)
		if err != nil {
			return nil, err
		}

		// Cache write is best-effort; a failed write just means a refetch.
		if encoded, err := json.Marshal(records); err == nil {
			_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]opentdb.RawQuestion), nil
}

func (c *QuestionCache) lookup(ctx context.Context, key string) ([]opentdb.RawQuestion, bool) {
	encoded, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var records []opentdb.RawQuestion
	if err := json.Unmarshal(encoded, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *QuestionCache) key(categoryID, amount int) string {
	return fmt.Sprintf("quiz:questions:%d:%d", categoryID, amount)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
