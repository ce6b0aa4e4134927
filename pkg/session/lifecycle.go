// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-relay-match/pkg/common"
	"github.com/AccelByte/extend-relay-match/pkg/retry"
)

// Initialise signs in to the relay backend, retrying with a linear backoff.
// It is a no-op once the coordinator is Ready or in a session.
func (c *Coordinator) Initialise(ctx context.Context) (err error) {
	c.mu.Lock()
	switch c.state {
	case StateReady, StateHosting, StateJoined:
		c.mu.Unlock()
		return nil
	case StateUninitialised, StateError, StateInitialising:
	default:
		st := c.state
		c.mu.Unlock()
		return &Error{Op: OpInitialise, Kind: KindWrongState, Err: fmt.Errorf("cannot initialise while %s", st)}
	}
	if c.busy {
		c.mu.Unlock()
		return &Error{Op: OpInitialise, Kind: KindBusy, Err: fmt.Errorf("a create or join is in progress")}
	}
	prev := c.state
	opCtx, gen := c.beginExclusiveLocked(ctx)
	notify := c.setStateLocked(StateInitialising)
	c.mu.Unlock()
	notify()

	defer c.endExclusive(gen)
	defer func() { record(OpInitialise, err) }()

	scope := common.StartScope(opCtx, "relay.initialise")
	defer scope.Finish()

	if err := c.authenticate(scope); err != nil {
		scope.TraceError(err)
		scope.Log.Errorf("relay initialisation failed: %v", err)
		return c.failExclusive(gen, OpInitialise, prev, err)
	}

	scope.Log.Info("relay services initialised")
	return c.finishExclusive(gen, OpInitialise, StateReady)
}

// VerifyAndRecover re-validates auth and decides whether the last hosted
// session can be resumed. An expired or unresolvable code is discarded and
// the coordinator lands in Ready; a live code is re-bound and it lands in
// Hosting. Auth failure lands in Error.
func (c *Coordinator) VerifyAndRecover(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return &Error{Op: OpRecover, Kind: KindBusy, Err: fmt.Errorf("a create or join is in progress")}
	}
	prev := c.state
	opCtx, gen := c.beginExclusiveLocked(ctx)
	notify := c.setStateLocked(StateInitialising)
	c.mu.Unlock()
	notify()

	defer c.endExclusive(gen)
	defer func() { record(OpRecover, err) }()

	scope := common.StartScope(opCtx, "relay.recover")
	defer scope.Finish()
	scope.TraceTag("previous_state", prev.String())

	if err := c.authenticate(scope); err != nil {
		scope.TraceError(err)
		scope.Log.Errorf("relay recovery could not re-authenticate: %v", err)
		return c.failExclusive(gen, OpRecover, prev, err)
	}

	code, ok := c.lastJoinCode(scope.Ctx)
	if !ok {
		if prev.InSession() {
			c.shutdownAndQuiesce(scope.Ctx)
		}
		scope.Log.Info("no join code to recover")
		return c.finishExclusive(gen, OpRecover, StateReady)
	}

	if c.IsExpired(code) {
		scope.Log.Infof("join code %s expired, discarding", code.Code)
		c.forgetCode(scope.Ctx)
		c.shutdownAndQuiesce(scope.Ctx)
		return c.finishExclusive(gen, OpRecover, StateReady)
	}

	var alloc Allocation
	err = withTimeout(scope.Ctx, c.cfg.VerifyTimeout, func(ctx context.Context) error {
		var e error
		alloc, e = c.relay.JoinAllocation(ctx, code.Code)
		return e
	})
	if err == nil {
		err = c.transport.Configure(scope.Ctx, alloc, RoleHost)
	}
	if err != nil {
		if opCtx.Err() != nil {
			return c.failExclusive(gen, OpRecover, prev, opCtx.Err())
		}
		scope.Log.Warnf("join code %s is no longer usable: %v", code.Code, err)
		c.forgetCode(scope.Ctx)
		c.shutdownAndQuiesce(scope.Ctx)
		return c.finishExclusive(gen, OpRecover, StateReady)
	}

	c.mu.Lock()
	if gen != c.initGen {
		c.mu.Unlock()
		return &Error{Op: OpRecover, Kind: KindCancelled, Err: errSuperseded}
	}
	c.code = code
	c.alloc = alloc
	notify = c.setStateLocked(StateHosting)
	c.mu.Unlock()
	notify()

	scope.Log.Infof("recovered hosted session with join code %s", code.Code)
	return nil
}

func (c *Coordinator) authenticate(scope *common.Scope) error {
	return retry.Do(scope.Ctx, retry.Policy{
		Name:           "relay.auth",
		MaxAttempts:    c.cfg.InitAttempts,
		Delay:          retry.Linear(c.cfg.InitBaseDelay),
		AttemptTimeout: c.cfg.AuthTimeout,
		OnRetry:        scope.TraceRetry,
	}, func(ctx context.Context, attempt int) error {
		return c.auth.SignInAnonymously(ctx)
	})
}
