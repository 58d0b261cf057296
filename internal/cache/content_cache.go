package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

const questionKeyPrefix = "exam-engine:question:"

// ContentCache sits in front of the question catalog. Hot reads (answer
// evaluation, finalization) hit redis; misses fall through to the catalog
// under singleflight so a cold key triggers a single load.
type ContentCache struct {
	client  *redis.Client
	catalog repositories.QuestionRepository
	ttl     time.Duration
	group   singleflight.Group
	logger  utils.Logger
}

func NewContentCache(client *redis.Client, catalog repositories.QuestionRepository, ttl time.Duration, logger utils.Logger) *ContentCache {
	return &ContentCache{
		client:  client,
		catalog: catalog,
		ttl:     ttl,
		logger:  logger,
	}
}

// ResolveQuestion returns the question by ID, preferring the cache.
func (c *ContentCache) ResolveQuestion(ctx context.Context, id uint) (*models.Question, error) {
	key := questionKey(id)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var q models.Question
		if jsonErr := json.Unmarshal(data, &q); jsonErr == nil {
			return &q, nil
		}
		// Corrupt entry, drop it and reload
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "question cache read failed", "question_id", id, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		q, err := c.catalog.ResolveQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, q)
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Question), nil
}

// ResolveQuestions returns questions in the same order as ids. Cached entries
// are served from redis; the remainder is loaded in one catalog call.
func (c *ContentCache) ResolveQuestions(ctx context.Context, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = questionKey(id)
	}

	found := make(map[uint]*models.Question, len(ids))
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "question cache mget failed", "error", err)
		values = make([]interface{}, len(ids))
	}

	var missing []uint
	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var q models.Question
		if jsonErr := json.Unmarshal([]byte(s), &q); jsonErr != nil {
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = &q
	}

	if len(missing) > 0 {
		loaded, err := c.catalog.ResolveQuestions(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, q := range loaded {
			if q == nil {
				continue
			}
			found[q.ID] = q
			c.store(ctx, questionKey(q.ID), q)
		}
	}

	out := make([]*models.Question, len(ids))
	for i, id := range ids {
		out[i] = found[id]
	}
	return out, nil
}

// Invalidate removes a question from the cache after a catalog update.
func (c *ContentCache) Invalidate(ctx context.Context, id uint) error {
	return c.client.Del(ctx, questionKey(id)).Err()
}

func (c *ContentCache) store(ctx context.Context, key string, q *models.Question) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, jitterTTL(c.ttl)).Err(); err != nil {
		c.logger.WarnContext(ctx, "question cache write failed", "key", key, "error", err)
	}
}

// jitterTTL spreads expirations so a batch of questions loaded together does
// not expire together. TTLs too small to jitter are used as-is.
func jitterTTL(ttl time.Duration) time.Duration {
	spread := int64(ttl) / 10
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(spread))
}

func questionKey(id uint) string {
	return fmt.Sprintf("%s%d", questionKeyPrefix, id)
}
