// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/metrics"

	"github.com/sirupsen/logrus"
)

var errSuperseded = errors.New("superseded by a newer operation")

// Dependencies are the external services a Coordinator drives.
type Dependencies struct {
	Auth      AuthService
	Relay     RelayService
	Transport Transport

	// Store persists the last join code. Optional.
	Store JoinCodeStore

	// Now overrides the clock used for join code expiry. Optional.
	Now func() time.Time
}

// Coordinator owns the local peer's relay session lifecycle. Every state
// transition happens under mu; listeners are invoked after mu is released.
//
// At most one CreateSession/JoinSession/Reset runs at a time and concurrent
// callers get KindBusy. Initialise and VerifyAndRecover share one slot: a
// new call cancels the in-flight one, which then returns KindCancelled
// without touching the state.
type Coordinator struct {
	cfg       Config
	auth      AuthService
	relay     RelayService
	transport Transport
	store     JoinCodeStore
	now       func() time.Time

	mu    sync.Mutex
	state State
	code  JoinCode
	alloc Allocation

	busy       bool
	busyCancel context.CancelFunc

	initGen    uint64
	initCancel context.CancelFunc

	nextListener     uint64
	stateListeners   map[uint64]func(from, to State)
	createdListeners map[uint64]func(JoinCode)
}

// NewCoordinator creates a coordinator in StateUninitialised.
func NewCoordinator(cfg Config, deps Dependencies) *Coordinator {
	c := &Coordinator{
		cfg:              cfg,
		auth:             deps.Auth,
		relay:            deps.Relay,
		transport:        deps.Transport,
		store:            deps.Store,
		now:              deps.Now,
		state:            StateUninitialised,
		stateListeners:   make(map[uint64]func(from, to State)),
		createdListeners: make(map[uint64]func(JoinCode)),
	}
	if c.store == nil {
		c.store = memoryStore{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JoinCode returns the code of the hosted session, if any.
func (c *Coordinator) JoinCode() (JoinCode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, !c.code.IsZero()
}

// IsExpired reports whether code is older than JoinCodeTTL on the coordinator's clock.
func (c *Coordinator) IsExpired(code JoinCode) bool {
	return code.IsExpired(c.now())
}

// Transport exposes the bound transport for latency sampling.
func (c *Coordinator) Transport() Transport {
	return c.transport
}

// OnStateChange registers fn for every transition and returns its unsubscribe func.
func (c *Coordinator) OnStateChange(fn func(from, to State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.stateListeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.stateListeners, id)
	}
}

// OnSessionCreated registers fn for successful CreateSession calls.
func (c *Coordinator) OnSessionCreated(fn func(JoinCode)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.createdListeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.createdListeners, id)
	}
}

// Cancel aborts whatever operation is in flight.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyCancel != nil {
		c.busyCancel()
	}
	if c.initCancel != nil {
		c.initCancel()
	}
}

// setStateLocked must be called with mu held. The returned func delivers
// the transition to listeners and must be called after mu is released.
func (c *Coordinator) setStateLocked(to State) func() {
	from := c.state
	if from == to {
		return func() {}
	}
	c.state = to

	metrics.SessionTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	logrus.Infof("relay session state %s -> %s", from, to)

	listeners := make([]func(from, to State), 0, len(c.stateListeners))
	for _, l := range c.stateListeners {
		listeners = append(listeners, l)
	}
	return func() {
		for _, l := range listeners {
			l(from, to)
		}
	}
}

func (c *Coordinator) transition(to State) {
	c.mu.Lock()
	notify := c.setStateLocked(to)
	c.mu.Unlock()
	notify()
}

// beginBusy claims the create/join slot when the state is one of allowed.
func (c *Coordinator) beginBusy(ctx context.Context, op Op, allowed ...State) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy || c.initCancel != nil {
		return nil, &Error{Op: op, Kind: KindBusy, Err: fmt.Errorf("another session operation is in progress")}
	}
	ok := false
	for _, s := range allowed {
		if c.state == s {
			ok = true
			break
		}
	}
	if !ok {
		return nil, &Error{Op: op, Kind: KindWrongState, Err: fmt.Errorf("cannot %s while %s", op, c.state)}
	}

	opCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.busyCancel = cancel
	return opCtx, nil
}

func (c *Coordinator) endBusy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.busyCancel != nil {
		c.busyCancel()
		c.busyCancel = nil
	}
}

// beginExclusiveLocked cancels any in-flight initialise/recover and claims the slot.
func (c *Coordinator) beginExclusiveLocked(ctx context.Context) (context.Context, uint64) {
	if c.initCancel != nil {
		c.initCancel()
	}
	c.initGen++
	opCtx, cancel := context.WithCancel(ctx)
	c.initCancel = cancel
	return opCtx, c.initGen
}

func (c *Coordinator) endExclusive(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.initGen && c.initCancel != nil {
		c.initCancel()
		c.initCancel = nil
	}
}

// finishExclusive moves to state `to` unless gen has been superseded.
func (c *Coordinator) finishExclusive(gen uint64, op Op, to State) error {
	c.mu.Lock()
	if gen != c.initGen {
		c.mu.Unlock()
		return &Error{Op: op, Kind: KindCancelled, Err: errSuperseded}
	}
	notify := c.setStateLocked(to)
	c.mu.Unlock()
	notify()
	return nil
}

// failExclusive settles a failed initialise/recover. A caller cancellation
// restores prev; any other failure lands in StateError.
func (c *Coordinator) failExclusive(gen uint64, op Op, prev State, err error) error {
	c.mu.Lock()
	if gen != c.initGen {
		c.mu.Unlock()
		return &Error{Op: op, Kind: KindCancelled, Err: errSuperseded}
	}

	result := classify(op, err)
	to := StateError
	if result.Kind == KindCancelled {
		to = prev
		if to == StateInitialising {
			to = StateUninitialised
		}
	}
	notify := c.setStateLocked(to)
	c.mu.Unlock()
	notify()
	return result
}

// forgetCode drops the join code and allocation from memory and the store.
func (c *Coordinator) forgetCode(ctx context.Context) {
	c.mu.Lock()
	c.code = JoinCode{}
	c.alloc = Allocation{}
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		logrus.Warnf("failed to clear persisted join code: %v", err)
	}
}

// lastJoinCode returns the in-memory code, falling back to the persisted one.
func (c *Coordinator) lastJoinCode(ctx context.Context) (JoinCode, bool) {
	if code, ok := c.JoinCode(); ok {
		return code, true
	}
	code, ok, err := c.store.Load(ctx)
	if err != nil {
		logrus.Warnf("failed to load persisted join code: %v", err)
		return JoinCode{}, false
	}
	return code, ok && !code.IsZero()
}

// shutdownAndQuiesce stops the transport and waits until it reports
// disconnected, bounded by QuiesceTimeout.
func (c *Coordinator) shutdownAndQuiesce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QuiesceTimeout)
	defer cancel()

	if err := c.transport.Shutdown(ctx); err != nil {
		logrus.Warnf("transport shutdown failed: %v", err)
	}

	ticker := time.NewTicker(c.cfg.ConnectPollInterval)
	defer ticker.Stop()
	for c.transport.IsConnected() {
		select {
		case <-ctx.Done():
			logrus.Warnf("transport still connected after shutdown, continuing")
			return
		case <-ticker.C:
		}
	}
}

func withTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func record(op Op, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	metrics.SessionOperationsTotal.WithLabelValues(string(op), result).Inc()
}
