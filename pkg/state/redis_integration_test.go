// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

//go:build integration
// +build integration

package state

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/common"
	"github.com/AccelByte/extend-relay-match/pkg/session"
)

// Run with: go test -tags integration ./pkg/state/...
// Requires: Redis reachable at REDIS_HOST:REDIS_PORT (default localhost:6379)
func TestRedisJoinCodeStore_RealRedis(t *testing.T) {
	ctx := context.Background()

	client, err := InitRedisClient(ctx, RedisOptions{
		Host:       common.GetEnv("REDIS_HOST", "localhost"),
		Port:       common.GetEnv("REDIS_PORT", "6379"),
		Password:   common.GetEnv("REDIS_PASSWORD", ""),
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("InitRedisClient() error = %v", err)
	}
	defer client.Close()

	owner := fmt.Sprintf("integration-%d", time.Now().UnixNano())
	store := NewRedisJoinCodeStore(client, RedisJoinCodeStoreConfig{Owner: owner})
	defer store.Clear(ctx)

	code := session.JoinCode{Code: "IT0001", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := store.Save(ctx, code); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v, %v", got, ok, err)
	}
	if got.Code != code.Code || !got.CreatedAt.Equal(code.CreatedAt) {
		t.Errorf("Load() = %+v, expected %+v", got, code)
	}

	ttl, err := client.TTL(ctx, makeKey(owner)).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > session.JoinCodeTTL {
		t.Errorf("TTL = %v, expected within (0, %v]", ttl, session.JoinCodeTTL)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Error("Load() found a code after Clear()")
	}
}
