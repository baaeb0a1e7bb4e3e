package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisReceiptCache_StoreDelivered_Success(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisReceiptCache(rdb, 10*time.Second)

	ctx := context.Background()
	notifID := "7cf1c6f2-55a0-4f3e-9a9f-0f6f3a2de111"
	remoteID := "remote-123"
	sentAt := time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC)

	if err := cache.StoreDelivered(ctx, notifID, remoteID, sentAt); err != nil {
		t.Fatalf("StoreDelivered() error: %v", err)
	}

	key := "notif:" + notifID

	if !mr.Exists(key) {
		t.Fatalf("expected key %q to exist", key)
	}

	ttlRemaining := mr.TTL(key)
	if ttlRemaining <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttlRemaining)
	}

	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("failed to get key %q: %v", key, err)
	}

	var got deliveredValue
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}

	if got.RemoteMessageID != remoteID {
		t.Fatalf("expected RemoteMessageID %q, got %q", remoteID, got.RemoteMessageID)
	}
	if !got.SentAt.Equal(sentAt) {
		t.Fatalf("expected SentAt %v, got %v", sentAt, got.SentAt)
	}
}

func TestRedisReceiptCache_StoreDelivered_OverwritesExistingValue(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisReceiptCache(rdb, time.Minute)
	ctx := context.Background()

	if err := cache.StoreDelivered(ctx, "n1", "first", time.Now()); err != nil {
		t.Fatalf("first StoreDelivered() error: %v", err)
	}
	if err := cache.StoreDelivered(ctx, "n1", "second", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("second StoreDelivered() error: %v", err)
	}

	raw, err := mr.Get("notif:n1")
	if err != nil {
		t.Fatalf("failed to get key notif:n1: %v", err)
	}

	var got deliveredValue
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}

	if got.RemoteMessageID != "second" {
		t.Fatalf("expected overwritten RemoteMessageID %q, got %q", "second", got.RemoteMessageID)
	}
}

func TestRedisReceiptCache_StoreDelivered_ContextCanceled(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisReceiptCache(rdb, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.StoreDelivered(ctx, "n1", "x", time.Now()); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}
