// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/retry"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// KeyPrefix is the prefix for all persisted join code keys
	KeyPrefix = "relay_match:last_join_code:"
)

// RedisOptions configures InitRedisClient.
type RedisOptions struct {
	Host       string
	Port       string
	Password   string
	MaxRetries int
	RetryDelay time.Duration
}

// InitRedisClient initializes and returns a Redis client with retry logic
func InitRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	addr := opts.Host + ":" + opts.Port
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	err := retry.Do(ctx, retry.Policy{
		Name:        "redis.connect",
		MaxAttempts: opts.MaxRetries,
		Delay:       retry.Linear(opts.RetryDelay),
	}, func(ctx context.Context, attempt int) error {
		if _, err := client.Ping(ctx).Result(); err != nil {
			return err
		}
		logrus.Infof("connected to Redis at %s (attempt %d/%d)", addr, attempt, opts.MaxRetries)
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return client, nil
}

// RedisJoinCodeStore persists the last created join code per host so a
// restarted host can try to resume its session.
type RedisJoinCodeStore struct {
	client *redis.Client
	cfg    RedisJoinCodeStoreConfig
}

type RedisJoinCodeStoreConfig struct {
	// Owner scopes the key, normally the host's namespace and client id.
	Owner string

	// TTL defaults to session.JoinCodeTTL.
	TTL time.Duration

	Now func() time.Time
}

func NewRedisJoinCodeStore(client *redis.Client, cfg RedisJoinCodeStoreConfig) *RedisJoinCodeStore {
	if cfg.TTL <= 0 {
		cfg.TTL = session.JoinCodeTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisJoinCodeStore{client: client, cfg: cfg}
}

// makeKey creates the Redis key for an owner
func makeKey(owner string) string {
	return fmt.Sprintf("%s%s", KeyPrefix, owner)
}

// Save stores code with the configured TTL, replacing any previous code.
func (s *RedisJoinCodeStore) Save(ctx context.Context, code session.JoinCode) error {
	key := makeKey(s.cfg.Owner)

	data, err := json.Marshal(recordFromJoinCode(s.cfg.Owner, code, s.cfg.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal join code: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.cfg.TTL).Err(); err != nil {
		logrus.Errorf("failed to save join code for %s: %v", s.cfg.Owner, err)
		return fmt.Errorf("failed to save join code: %w", err)
	}

	logrus.Debugf("saved join code %s for %s with TTL %v", code.Code, s.cfg.Owner, s.cfg.TTL)
	return nil
}

// Load returns the persisted code. ok is false when nothing is stored.
func (s *RedisJoinCodeStore) Load(ctx context.Context) (session.JoinCode, bool, error) {
	key := makeKey(s.cfg.Owner)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return session.JoinCode{}, false, nil
	}
	if err != nil {
		logrus.Errorf("failed to load join code for %s: %v", s.cfg.Owner, err)
		return session.JoinCode{}, false, fmt.Errorf("failed to load join code: %w", err)
	}

	var record JoinCodeRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		logrus.Errorf("failed to unmarshal join code for %s: %v", s.cfg.Owner, err)
		return session.JoinCode{}, false, fmt.Errorf("failed to unmarshal join code: %w", err)
	}

	return record.joinCode(), true, nil
}

// Clear deletes the persisted code.
func (s *RedisJoinCodeStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, makeKey(s.cfg.Owner)).Err(); err != nil {
		logrus.Errorf("failed to clear join code for %s: %v", s.cfg.Owner, err)
		return fmt.Errorf("failed to clear join code: %w", err)
	}
	return nil
}
