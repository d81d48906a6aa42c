package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "restaurant:cart"

// RedisStore keeps each draft as a JSON string with a TTL, so expiry is left
// to redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(tableID int) string {
	return fmt.Sprintf("%s:%d", redisKeyPrefix, tableID)
}

func (r *RedisStore) Get(ctx context.Context, tableID int) (*Draft, error) {
	raw, err := r.client.Get(ctx, redisKey(tableID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode cart draft: %w", err)
	}
	return &d, nil
}

func (r *RedisStore) Put(ctx context.Context, draft *Draft, ttl time.Duration) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode cart draft: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(draft.TableID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cart draft: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, tableID int) error {
	if err := r.client.Del(ctx, redisKey(tableID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart draft: %w", err)
	}
	return nil
}
