// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestRedisJoinCodeStore_LoadEmpty(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-1"})

	_, ok, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() should report no code for a fresh owner")
	}
}

func TestRedisJoinCodeStore_SaveLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-1"})
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, session.JoinCode{Code: "AB12CD", CreatedAt: created}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() reported no code after Save()")
	}
	if got.Code != "AB12CD" {
		t.Errorf("Code = %q, expected AB12CD", got.Code)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, expected %v", got.CreatedAt, created)
	}

	// Verify TTL was set
	ttl := mr.TTL(makeKey("host-1"))
	if ttl != session.JoinCodeTTL {
		t.Errorf("TTL = %v, expected %v", ttl, session.JoinCodeTTL)
	}
}

func TestRedisJoinCodeStore_OwnersAreIsolated(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	a := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-a"})
	b := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-b"})

	if err := a.Save(ctx, session.JoinCode{Code: "AAAAAA", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, ok, _ := b.Load(ctx); ok {
		t.Error("host-b should not see host-a's join code")
	}
}

func TestRedisJoinCodeStore_ExpiresWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-1", TTL: time.Minute})

	if err := store.Save(ctx, session.JoinCode{Code: "AB12CD", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := store.Load(ctx); ok {
		t.Error("Load() should find nothing once the TTL elapsed")
	}
}

func TestRedisJoinCodeStore_Clear(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-1"})

	_ = store.Save(ctx, session.JoinCode{Code: "AB12CD", CreatedAt: time.Now()})
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if mr.Exists(makeKey("host-1")) {
		t.Error("key should be deleted after Clear()")
	}
}

func TestRedisJoinCodeStore_CorruptRecord(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	if err := mr.Set(makeKey("host-1"), "{not json"); err != nil {
		t.Fatalf("failed to seed key: %v", err)
	}

	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: "host-1"})
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Error("Load() expected error for a corrupt record")
	}
}

func TestRedisJoinCodeStore_RecordShape(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	saved := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{
		Owner: "host-1",
		Now:   func() time.Time { return saved },
	})
	_ = store.Save(context.Background(), session.JoinCode{Code: "AB12CD", CreatedAt: saved.Add(-5 * time.Minute)})

	raw, err := mr.Get(makeKey("host-1"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var record JoinCodeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if record.Owner != "host-1" || !record.SavedAt.Equal(saved) {
		t.Errorf("record = %+v, expected owner host-1 saved at %v", record, saved)
	}
}

func TestInitRedisClient(t *testing.T) {
	_, mr := setupTestRedis(t)
	defer mr.Close()

	client, err := InitRedisClient(context.Background(), RedisOptions{
		Host:       mr.Host(),
		Port:       mr.Port(),
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("InitRedisClient() error = %v", err)
	}
	defer client.Close()

	if err := NewHealthChecker(client).Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v, expected nil", err)
	}
}

func TestHealthChecker_Unreachable(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	if err := NewHealthChecker(client).Check(context.Background()); err == nil {
		t.Error("Check() error = nil after Redis stopped")
	}
}
