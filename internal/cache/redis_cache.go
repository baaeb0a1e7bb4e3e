// Package cache keeps delivery receipts for sent notifications in Redis so
// the admin surface can answer "was this person told" without hitting
// Postgres. Entries expire after the configured TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisReceiptCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReceiptCache(rdb *redis.Client, ttl time.Duration) *RedisReceiptCache {
	return &RedisReceiptCache{rdb: rdb, ttl: ttl}
}

type deliveredValue struct {
	RemoteMessageID string    `json:"remoteMessageId"`
	SentAt          time.Time `json:"sentAt"`
}

func (c *RedisReceiptCache) StoreDelivered(ctx context.Context, notificationID string, remoteMessageID string, sentAt time.Time) error {
	key := fmt.Sprintf("notif:%s", notificationID)
	val := deliveredValue{
		RemoteMessageID: remoteMessageID,
		SentAt:          sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}
