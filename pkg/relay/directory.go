// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package relay implements the relay allocation directory and peer
// transport on top of Redis.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	allocationPrefix = "relay_match:allocation:"
	joinCodePrefix   = "relay_match:join:"
	peerSeqPrefix    = "relay_match:peers:"
	channelPrefix    = "relay_match:relay:"

	codeAttempts = 5
)

var errCodeCollision = errors.New("join code collision")

type allocationRecord struct {
	ID        string    `json:"id"`
	Region    string    `json:"region"`
	MaxPeers  int       `json:"max_peers"`
	JoinCode  string    `json:"join_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type DirectoryConfig struct {
	Region string
	// TTL bounds how long an allocation and its join code live without a
	// keep-alive. Defaults to session.JoinCodeTTL.
	TTL time.Duration
	Now func() time.Time
}

// Directory hands out relay allocations and join codes. It implements
// session.RelayService, session.KeepAliver and session.Releaser.
type Directory struct {
	client *redis.Client
	cfg    DirectoryConfig
}

var (
	_ session.RelayService = (*Directory)(nil)
	_ session.KeepAliver   = (*Directory)(nil)
	_ session.Releaser     = (*Directory)(nil)
)

func NewDirectory(client *redis.Client, cfg DirectoryConfig) *Directory {
	if cfg.TTL <= 0 {
		cfg.TTL = session.JoinCodeTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Region == "" {
		cfg.Region = "local"
	}
	return &Directory{client: client, cfg: cfg}
}

func (d *Directory) CreateAllocation(ctx context.Context, maxPeers int) (session.Allocation, error) {
	rec := allocationRecord{
		ID:        uuid.NewString(),
		Region:    d.cfg.Region,
		MaxPeers:  maxPeers,
		CreatedAt: d.cfg.Now(),
	}
	if err := d.saveAllocation(ctx, rec); err != nil {
		return session.Allocation{}, err
	}

	logrus.Infof("created relay allocation %s in %s", rec.ID, rec.Region)
	return session.Allocation{ID: rec.ID, Region: rec.Region}, nil
}

// GetJoinCode reserves a fresh code for the allocation. Codes are unique
// among live allocations.
func (d *Directory) GetJoinCode(ctx context.Context, allocationID string) (string, error) {
	rec, err := d.loadAllocation(ctx, allocationID)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code, err := GenerateJoinCode()
		if err != nil {
			return "", &session.Error{Kind: session.KindInternal, Err: err}
		}

		ok, err := d.client.SetNX(ctx, joinCodePrefix+code, allocationID, d.cfg.TTL).Result()
		if err != nil {
			return "", fmt.Errorf("failed to reserve join code: %w", err)
		}
		if !ok {
			logrus.Debugf("join code collision on attempt %d, regenerating", attempt)
			continue
		}

		rec.JoinCode = code
		if err := d.saveAllocation(ctx, rec); err != nil {
			return "", err
		}
		return code, nil
	}
	return "", &session.Error{Kind: session.KindInternal, Err: errCodeCollision}
}

func (d *Directory) JoinAllocation(ctx context.Context, code string) (session.Allocation, error) {
	allocationID, err := d.client.Get(ctx, joinCodePrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return session.Allocation{}, &session.Error{Kind: session.KindNotFound, Err: fmt.Errorf("join code %s: %w", code, err)}
	}
	if err != nil {
		return session.Allocation{}, fmt.Errorf("failed to resolve join code: %w", err)
	}

	rec, err := d.loadAllocation(ctx, allocationID)
	if err != nil {
		return session.Allocation{}, err
	}
	return session.Allocation{ID: rec.ID, Region: rec.Region}, nil
}

// KeepAlive refreshes the TTL of the allocation and its join code.
func (d *Directory) KeepAlive(ctx context.Context, allocationID string) error {
	rec, err := d.loadAllocation(ctx, allocationID)
	if err != nil {
		return err
	}

	pipe := d.client.TxPipeline()
	pipe.Expire(ctx, allocationPrefix+allocationID, d.cfg.TTL)
	if rec.JoinCode != "" {
		pipe.Expire(ctx, joinCodePrefix+rec.JoinCode, d.cfg.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh allocation %s: %w", allocationID, err)
	}
	return nil
}

// Release deletes the allocation and its join code.
func (d *Directory) Release(ctx context.Context, allocationID string) error {
	rec, err := d.loadAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	keys := []string{allocationPrefix + allocationID, peerSeqPrefix + allocationID}
	if rec.JoinCode != "" {
		keys = append(keys, joinCodePrefix+rec.JoinCode)
	}
	return d.client.Del(ctx, keys...).Err()
}

func (d *Directory) saveAllocation(ctx context.Context, rec allocationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &session.Error{Kind: session.KindInternal, Err: err}
	}
	if err := d.client.Set(ctx, allocationPrefix+rec.ID, data, d.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save allocation %s: %w", rec.ID, err)
	}
	return nil
}

func (d *Directory) loadAllocation(ctx context.Context, allocationID string) (allocationRecord, error) {
	data, err := d.client.Get(ctx, allocationPrefix+allocationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return allocationRecord{}, &session.Error{Kind: session.KindNotFound, Err: fmt.Errorf("allocation %s: %w", allocationID, err)}
	}
	if err != nil {
		return allocationRecord{}, fmt.Errorf("failed to load allocation %s: %w", allocationID, err)
	}

	var rec allocationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return allocationRecord{}, &session.Error{Kind: session.KindInternal, Err: fmt.Errorf("failed to unmarshal allocation: %w", err)}
	}
	return rec, nil
}
