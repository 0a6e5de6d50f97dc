package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizwhiz-service/internal/opentdb"
	"quizwhiz-service/internal/questionbank"

	"golang.org/x/sync/singleflight"
)

// QuestionCache caches raw question batches per category with TTL to avoid
// hammering the trivia source. It wraps another questionbank.Source; the
// adapter still shuffles options per fetch, so cached batches do not leak a
// fixed option order between sessions.
type QuestionCache struct {
	source questionbank.Source
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

// cachedBatch with a zero expiresAt never expires, matching the redis cache's
// treatment of a non-positive TTL.
type cachedBatch struct {
	records   []opentdb.RawQuestion
	expiresAt time.Time
}

func (b cachedBatch) live(now time.Time) bool {
	return b.expiresAt.IsZero() || b.expiresAt.After(now)
}

func NewQuestionCache(source questionbank.Source, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (c *QuestionCache) Fetch(ctx context.Context, categoryID, amount int) ([]opentdb.RawQuestion, error) {
	key := batchKey(categoryID, amount)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.live(now) {
		c.mu.RUnlock()
		return entry.records, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.live(now) {
			c.mu.RUnlock()
			return entry.records, nil
		}
		c.mu.RUnlock()

		records, err := c.source.Fetch(ctx, categoryID, amount)
		if err != nil {
			return nil, err
		}

		entry := cachedBatch{records: records}
		if c.ttl > 0 {
			entry.expiresAt = now.Add(c.ttlWithJitter())
		}
		c.mu.Lock()
		c.cache[key] = entry
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]opentdb.RawQuestion), nil
}

// ttlWithJitter adds up to 10% jitter to spread expirations. Only called with
// a positive ttl; zero-TTL entries are stored without a deadline.
func (c *QuestionCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func batchKey(categoryID, amount int) string {
	return fmt.Sprintf("questions:%d:%d", categoryID, amount)
}
