// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode() error = %v", err)
		}
		if _, err := session.ParseJoinCode(code); err != nil {
			t.Errorf("generated code %q is not canonical: %v", code, err)
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("expected mostly unique codes, got %d distinct of 100", len(seen))
	}
}

func TestDirectory_CreateAndJoin(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	dir := NewDirectory(client, DirectoryConfig{Region: "ap-southeast-1"})

	alloc, err := dir.CreateAllocation(ctx, 2)
	if err != nil {
		t.Fatalf("CreateAllocation() error = %v", err)
	}
	if alloc.ID == "" || alloc.Region != "ap-southeast-1" {
		t.Fatalf("unexpected allocation %+v", alloc)
	}

	code, err := dir.GetJoinCode(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("GetJoinCode() error = %v", err)
	}

	joined, err := dir.JoinAllocation(ctx, code)
	if err != nil {
		t.Fatalf("JoinAllocation() error = %v", err)
	}
	if joined != alloc {
		t.Errorf("JoinAllocation() = %+v, want %+v", joined, alloc)
	}
}

func TestDirectory_UnknownCode(t *testing.T) {
	client, _ := setupTestRedis(t)
	dir := NewDirectory(client, DirectoryConfig{})

	_, err := dir.JoinAllocation(context.Background(), "ZZZZZZ")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if session.KindOf(err).Retryable() {
		t.Error("an unknown code must not be retried")
	}

	if _, err := dir.GetJoinCode(context.Background(), "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected not found for unknown allocation, got %v", err)
	}
}

func TestDirectory_CodeExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	dir := NewDirectory(client, DirectoryConfig{})

	alloc, _ := dir.CreateAllocation(ctx, 2)
	code, err := dir.GetJoinCode(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("GetJoinCode() error = %v", err)
	}

	mr.FastForward(29 * time.Minute)
	if _, err := dir.JoinAllocation(ctx, code); err != nil {
		t.Fatalf("code should still be valid at 29m: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := dir.JoinAllocation(ctx, code); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected not found after expiry, got %v", err)
	}
}

func TestDirectory_KeepAliveExtends(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	dir := NewDirectory(client, DirectoryConfig{})

	alloc, _ := dir.CreateAllocation(ctx, 2)
	code, _ := dir.GetJoinCode(ctx, alloc.ID)

	mr.FastForward(20 * time.Minute)
	if err := dir.KeepAlive(ctx, alloc.ID); err != nil {
		t.Fatalf("KeepAlive() error = %v", err)
	}
	mr.FastForward(20 * time.Minute)

	if _, err := dir.JoinAllocation(ctx, code); err != nil {
		t.Errorf("keep-alive should extend the code: %v", err)
	}
}

func TestDirectory_Release(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	dir := NewDirectory(client, DirectoryConfig{})

	alloc, _ := dir.CreateAllocation(ctx, 2)
	code, _ := dir.GetJoinCode(ctx, alloc.ID)

	if err := dir.Release(ctx, alloc.ID); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if mr.Exists(joinCodePrefix + code) {
		t.Error("join code key should be deleted")
	}
	if _, err := dir.JoinAllocation(ctx, code); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected not found after release, got %v", err)
	}
}
