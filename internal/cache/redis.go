package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/estate-backend/internal/model"
)

const redisKeyPrefix = "estate:conversations:"

// Redis shares conversation lists between API instances.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func redisKey(uid string) string {
	return redisKeyPrefix + uid
}

func (r *Redis) Get(ctx context.Context, uid string) (*model.ConversationList, bool, error) {
	data, err := r.client.Get(ctx, redisKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var list model.ConversationList
	if err := json.Unmarshal(data, &list); err != nil {
		// unreadable entry; drop it and report a miss
		_ = r.client.Del(ctx, redisKey(uid)).Err()
		return nil, false, nil
	}
	return &list, true, nil
}

func (r *Redis) Set(ctx context.Context, uid string, list *model.ConversationList, ttl time.Duration) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(uid), data, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, uid string) error {
	return r.client.Del(ctx, redisKey(uid)).Err()
}
