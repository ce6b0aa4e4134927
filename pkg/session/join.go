// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"errors"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/common"
	"github.com/AccelByte/extend-relay-match/pkg/retry"
)

var errNeverConnected = errors.New("transport did not report a connection in time")

// JoinSession joins the session behind raw. The code is validated locally
// before any network call. On success the coordinator is Joined; exhausted
// retries or a terminal classification leave it in Error; cancellation
// returns it to Ready.
func (c *Coordinator) JoinSession(ctx context.Context, raw string) (err error) {
	code, err := ParseJoinCode(raw)
	if err != nil {
		record(OpJoin, err)
		return err
	}

	opCtx, err := c.beginBusy(ctx, OpJoin, StateReady)
	if err != nil {
		record(OpJoin, err)
		return err
	}
	defer c.endBusy()
	defer func() { record(OpJoin, err) }()

	scope := common.StartScope(opCtx, "relay.join_session")
	defer scope.Finish()
	scope.TraceTag("join_code", code)

	c.transition(StateJoining)

	alloc, jerr := c.join(scope, code)
	if jerr == nil {
		c.mu.Lock()
		c.alloc = alloc
		notify := c.setStateLocked(StateJoined)
		c.mu.Unlock()
		notify()
		scope.Log.Infof("joined relay session %s", code)
		return nil
	}

	scope.TraceError(jerr)
	c.shutdownAndQuiesce(context.Background())

	serr := classify(OpJoin, jerr)
	if serr.Kind == KindCancelled {
		scope.Log.Infof("join of %s cancelled", code)
		c.transition(StateReady)
		return serr
	}
	scope.Log.Errorf("failed to join relay session %s: %v", code, jerr)
	c.transition(StateError)
	return serr
}

func (c *Coordinator) join(scope *common.Scope, code string) (Allocation, error) {
	ctx := scope.Ctx
	c.shutdownAndQuiesce(ctx)

	err := withTimeout(ctx, c.cfg.VerifyTimeout, func(ctx context.Context) error {
		_, e := c.relay.JoinAllocation(ctx, code)
		return e
	})
	if err != nil {
		if ctx.Err() != nil {
			return Allocation{}, ctx.Err()
		}
		if !KindOf(err).Retryable() {
			return Allocation{}, err
		}
	}

	var alloc Allocation
	err = retry.Do(ctx, retry.Policy{
		Name:           "relay.join",
		MaxAttempts:    c.cfg.JoinAttempts,
		Delay:          retry.Linear(c.cfg.JoinBaseDelay),
		AttemptTimeout: c.cfg.AllocationTimeout,
		Retryable:      func(err error) bool { return KindOf(err).Retryable() },
		OnRetry:        scope.TraceRetry,
	}, func(ctx context.Context, attempt int) error {
		a, err := c.relay.JoinAllocation(ctx, code)
		if err != nil {
			return err
		}
		if err := c.transport.Configure(ctx, a, RoleGuest); err != nil {
			return err
		}
		alloc = a
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}

	if err := c.waitConnected(ctx); err != nil {
		return Allocation{}, err
	}
	return alloc, nil
}

// waitConnected blocks until the transport is connected, preferring the
// transport's own notification and falling back to polling.
func (c *Coordinator) waitConnected(ctx context.Context) error {
	if c.transport.IsConnected() {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var connected <-chan struct{}
	if n, ok := c.transport.(ConnectNotifier); ok {
		connected = n.Connected()
	}

	ticker := time.NewTicker(c.cfg.ConnectPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &Error{Op: OpJoin, Kind: KindTimeout, Err: errNeverConnected}
		case <-connected:
			connected = nil
			if c.transport.IsConnected() {
				return nil
			}
		case <-ticker.C:
			if c.transport.IsConnected() {
				return nil
			}
		}
	}
}
