// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-relay-match/pkg/common"

	"github.com/sirupsen/logrus"
)

// CreateSession reserves a relay allocation for two peers, obtains its
// join code and binds the transport as host. Any failure leaves the
// coordinator in Ready.
func (c *Coordinator) CreateSession(ctx context.Context) (code JoinCode, err error) {
	opCtx, err := c.beginBusy(ctx, OpCreate, StateReady)
	if err != nil {
		record(OpCreate, err)
		return JoinCode{}, err
	}
	defer c.endBusy()
	defer func() { record(OpCreate, err) }()

	scope := common.StartScope(opCtx, "relay.create_session")
	defer scope.Finish()

	var alloc Allocation
	err = withTimeout(scope.Ctx, c.cfg.AllocationTimeout, func(ctx context.Context) error {
		var e error
		alloc, e = c.relay.CreateAllocation(ctx, c.cfg.MaxPeers)
		return e
	})
	if err != nil {
		scope.TraceError(err)
		scope.Log.Errorf("failed to create relay allocation: %v", err)
		return JoinCode{}, classify(OpCreate, err)
	}
	scope.TraceTag("allocation_id", alloc.ID)

	var raw string
	err = withTimeout(scope.Ctx, c.cfg.AllocationTimeout, func(ctx context.Context) error {
		var e error
		raw, e = c.relay.GetJoinCode(ctx, alloc.ID)
		return e
	})
	if err != nil {
		scope.TraceError(err)
		scope.Log.Errorf("failed to get join code for allocation %s: %v", alloc.ID, err)
		return JoinCode{}, classify(OpCreate, err)
	}

	canonical, perr := CanonicalJoinCode(raw)
	if perr != nil {
		return JoinCode{}, &Error{Op: OpCreate, Kind: KindInternal, Err: fmt.Errorf("relay returned an unusable join code: %w", perr)}
	}

	if err = c.transport.Configure(scope.Ctx, alloc, RoleHost); err != nil {
		scope.TraceError(err)
		return JoinCode{}, classify(OpCreate, err)
	}

	code = JoinCode{Code: canonical, CreatedAt: c.now()}

	c.mu.Lock()
	if opCtx.Err() != nil {
		c.mu.Unlock()
		c.shutdownAndQuiesce(context.Background())
		c.releaseAllocation(context.Background(), alloc)
		err = &Error{Op: OpCreate, Kind: KindCancelled, Err: opCtx.Err()}
		return JoinCode{}, err
	}
	c.code = code
	c.alloc = alloc
	notify := c.setStateLocked(StateHosting)
	listeners := make([]func(JoinCode), 0, len(c.createdListeners))
	for _, l := range c.createdListeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	if serr := c.store.Save(scope.Ctx, code); serr != nil {
		scope.Log.Warnf("failed to persist join code %s: %v", code.Code, serr)
	}

	notify()
	for _, l := range listeners {
		l(code)
	}

	scope.Log.Infof("hosting relay session with join code %s", code.Code)
	return code, nil
}

// Reset leaves the current session and returns to Ready, forgetting the join code.
func (c *Coordinator) Reset(ctx context.Context) (err error) {
	opCtx, err := c.beginBusy(ctx, OpReset, StateHosting, StateJoined)
	if err != nil {
		return err
	}
	defer c.endBusy()
	defer func() { record(OpReset, err) }()

	c.mu.Lock()
	hosting, alloc := c.state == StateHosting, c.alloc
	c.mu.Unlock()

	c.shutdownAndQuiesce(opCtx)
	if hosting {
		c.releaseAllocation(opCtx, alloc)
	}
	c.forgetCode(opCtx)
	c.transition(StateReady)
	return nil
}

// releaseAllocation invalidates a hosted allocation's join code on the relay
// so guests get KindNotFound instead of waiting for a host that left.
func (c *Coordinator) releaseAllocation(ctx context.Context, alloc Allocation) {
	rel, ok := c.relay.(Releaser)
	if !ok || alloc.ID == "" {
		return
	}
	err := withTimeout(ctx, c.cfg.VerifyTimeout, func(ctx context.Context) error {
		return rel.Release(ctx, alloc.ID)
	})
	if err != nil && KindOf(err) != KindNotFound {
		logrus.Warnf("failed to release relay allocation %s: %v", alloc.ID, err)
	}
}

// KeepAlive refreshes the hosted allocation when the relay service needs it.
// It does nothing outside StateHosting.
func (c *Coordinator) KeepAlive(ctx context.Context) (err error) {
	c.mu.Lock()
	state, alloc := c.state, c.alloc
	c.mu.Unlock()

	ka, ok := c.relay.(KeepAliver)
	if state != StateHosting || !ok || alloc.ID == "" {
		return nil
	}

	err = withTimeout(ctx, c.cfg.VerifyTimeout, func(ctx context.Context) error {
		return ka.KeepAlive(ctx, alloc.ID)
	})
	if err != nil {
		err = classify(OpKeepAlive, err)
	}
	record(OpKeepAlive, err)
	return err
}
