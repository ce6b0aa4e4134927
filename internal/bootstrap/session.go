// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/relay"
	"github.com/AccelByte/extend-relay-match/pkg/session"
	"github.com/AccelByte/extend-relay-match/pkg/state"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RelayOptions configures the Redis-backed relay.
type RelayOptions struct {
	Region            string
	HeartbeatInterval time.Duration
	PeerTimeout       time.Duration
}

// InitRelay creates the relay directory and transport sharing one Redis client.
//
// ============================================================
// DEVELOPER: Relay backend
// ============================================================
// The directory hands out allocations and join codes; the
// transport carries session traffic over Redis pub/sub. To run
// against a different relay backend, implement
// session.RelayService and session.Transport plus room.Link and
// return them from here.
// ============================================================
func InitRelay(client *redis.Client, opts RelayOptions) (*relay.Directory, *relay.Transport) {
	directory := relay.NewDirectory(client, relay.DirectoryConfig{
		Region: opts.Region,
	})

	tcfg := relay.DefaultTransportConfig()
	if opts.HeartbeatInterval > 0 {
		tcfg.HeartbeatInterval = opts.HeartbeatInterval
	}
	if opts.PeerTimeout > 0 {
		tcfg.PeerTimeout = opts.PeerTimeout
	}
	transport := relay.NewTransport(client, tcfg)

	logrus.Infof("initialized relay in region %s (heartbeat %v, peer timeout %v)",
		opts.Region, tcfg.HeartbeatInterval, tcfg.PeerTimeout)
	return directory, transport
}

// CoordinatorOptions overrides the production coordinator timings.
type CoordinatorOptions struct {
	MaxPeers       int
	ConnectTimeout time.Duration
	// Owner scopes the persisted join code. Empty disables persistence.
	Owner string
}

// InitCoordinator creates the relay session coordinator.
func InitCoordinator(
	client *redis.Client,
	auth session.AuthService,
	relayService session.RelayService,
	transport session.Transport,
	opts CoordinatorOptions,
) (*session.Coordinator, error) {
	cfg := session.DefaultConfig()
	if opts.MaxPeers > 0 {
		cfg.MaxPeers = opts.MaxPeers
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnectTimeout = opts.ConnectTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	deps := session.Dependencies{
		Auth:      auth,
		Relay:     relayService,
		Transport: transport,
	}
	if opts.Owner != "" {
		deps.Store = state.NewRedisJoinCodeStore(client, state.RedisJoinCodeStoreConfig{Owner: opts.Owner})
	}

	coord := session.NewCoordinator(cfg, deps)
	logrus.Infof("initialized relay session coordinator (max peers %d)", cfg.MaxPeers)
	return coord, nil
}
