// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package room is the session context. It owns every per-session
// component and routes relay traffic to them according to this peer's role.
package room

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/health"
	"github.com/AccelByte/extend-relay-match/pkg/loop"
	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/selection"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Profile    match.Profile
	Authority  selection.AuthorityConfig
	Reconciler selection.ReconcilerConfig

	// SendTimeout bounds every outbound relay message.
	SendTimeout time.Duration
	// SampleTimeout bounds a single health probe.
	SampleTimeout time.Duration
	// KeepAliveInterval is how often a hosting peer refreshes its allocation.
	KeepAliveInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Profile:           match.DefaultProfile(),
		Authority:         selection.DefaultAuthorityConfig(),
		Reconciler:        selection.DefaultReconcilerConfig(),
		SendTimeout:       2 * time.Second,
		SampleTimeout:     500 * time.Millisecond,
		KeepAliveInterval: 5 * time.Minute,
	}
}

type Dependencies struct {
	Coordinator *session.Coordinator
	Link        Link
	// World is driven by the host's match controller. Nil means headless.
	World   match.World
	Tickers loop.TickerCreator
}

// scope holds the components of one relay session. It is replaced
// wholesale whenever the session ends.
type scope struct {
	role   session.Role
	ctx    context.Context
	cancel context.CancelFunc
	store  *selection.Store

	// host
	authority   *selection.Authority
	controller  *match.Controller
	monitor     *health.Monitor
	matchCancel context.CancelFunc

	// guest
	reconciler *selection.Reconciler
	mirror     *match.Mirror
	pings      map[protocol.ParticipantID]int
}

// Room owns the live session. Session state changes and relay events are
// handled on a single event loop; the exported methods are safe for
// concurrent use.
type Room struct {
	cfg     Config
	coord   *session.Coordinator
	link    Link
	world   match.World
	tickers loop.TickerCreator
	loop    *loop.Loop
	sender  linkSender

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	active  *scope
	notices *noticeBus

	unsubscribe func()
}

func New(cfg Config, deps Dependencies) *Room {
	if deps.World == nil {
		deps.World = noopWorld{}
	}
	if deps.Tickers == nil {
		deps.Tickers = loop.NewTickerCreator()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		cfg:     cfg,
		coord:   deps.Coordinator,
		link:    deps.Link,
		world:   deps.World,
		tickers: deps.Tickers,
		loop:    loop.New(128),
		sender:  linkSender{link: deps.Link, timeout: cfg.SendTimeout},
		ctx:     ctx,
		cancel:  cancel,
		notices: newNoticeBus(),
	}
	r.unsubscribe = r.coord.OnStateChange(func(_, to session.State) {
		r.loop.Post(func() { r.onSessionState(to) })
	})
	return r
}

// Run processes session and relay events until ctx is done.
func (r *Room) Run(ctx context.Context) {
	go r.loop.Run(r.ctx)
	go r.keepAlive()

	// Pick up a session that was established before Run.
	state := r.coord.State()
	r.loop.Post(func() { r.onSessionState(state) })

	events := r.link.Events()
	for {
		select {
		case <-ctx.Done():
			r.close()
			return
		case ev := <-events:
			r.loop.Post(func() { r.handleEvent(ev) })
		}
	}
}

func (r *Room) close() {
	r.unsubscribe()
	if err := r.loop.Do(context.Background(), r.teardown); err != nil {
		r.teardown()
	}
	r.cancel()
	<-r.loop.Done()
}

// OnNotice registers fn for user-facing room notices and returns its
// unsubscribe func.
func (r *Room) OnNotice(fn func(Notice)) func() {
	return r.notices.subscribe(fn)
}

func (r *Room) current() *scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Room) onSessionState(state session.State) {
	s := r.current()
	switch state {
	case session.StateHosting:
		if s == nil || s.role != session.RoleHost {
			r.teardown()
			r.setupHost()
		}
	case session.StateJoining, session.StateJoined:
		if s == nil || s.role != session.RoleGuest {
			r.teardown()
			r.setupGuest()
		}
	default:
		r.teardown()
	}
}

func (r *Room) setupHost() {
	ctx, cancel := context.WithCancel(r.ctx)
	store := selection.NewStore(selection.Config{RosterSize: r.cfg.Profile.RosterSize, Publisher: r.sender})
	s := &scope{
		role:      session.RoleHost,
		ctx:       ctx,
		cancel:    cancel,
		store:     store,
		authority: selection.NewAuthority(store, r.sender, r.cfg.Authority),
		monitor: health.NewMonitor(health.Config{
			Interval:      r.cfg.Profile.SampleInterval,
			SampleTimeout: r.cfg.SampleTimeout,
			Window:        5,
			MaxPing:       r.cfg.Profile.MaxPing,
		}, r.link, r.link.Participants, r.sender),
	}
	s.controller = r.newController(s)

	r.mu.Lock()
	r.active = s
	r.mu.Unlock()

	go s.monitor.Run(ctx, r.tickers)
	logrus.Infof("room ready as host")
}

func (r *Room) setupGuest() {
	ctx, cancel := context.WithCancel(r.ctx)
	s := &scope{
		role:       session.RoleGuest,
		ctx:        ctx,
		cancel:     cancel,
		store:      selection.NewStore(selection.Config{RosterSize: r.cfg.Profile.RosterSize}),
		reconciler: selection.NewReconciler(r.sender, r.cfg.Reconciler),
		mirror:     match.NewMirror(),
		pings:      make(map[protocol.ParticipantID]int),
	}

	r.mu.Lock()
	r.active = s
	r.mu.Unlock()
	logrus.Infof("room ready as guest")
}

func (r *Room) teardown() {
	r.mu.Lock()
	s := r.active
	r.active = nil
	r.mu.Unlock()
	if s == nil {
		return
	}

	if s.controller != nil {
		s.controller.Stop()
	}
	s.cancel()
	logrus.Infof("room closed %s session", s.role)
}

// newController builds a fresh match for the lobby. The selection lock is
// released once the match ends.
func (r *Room) newController(s *scope) *match.Controller {
	c := match.NewController(r.cfg.Profile.ControllerConfig(), r.world, r.sender, s.store)
	c.OnEnd(func(result match.Result) {
		s.store.Unlock()
		r.notices.publish(Notice{Kind: NoticeMatchEnded, Result: result, Message: resultMessage(result)})
	})
	return c
}

// replaceController swaps in a fresh match. Called on the loop only.
func (r *Room) replaceController(s *scope) {
	c := r.newController(s)
	r.mu.Lock()
	s.controller = c
	r.mu.Unlock()
}

func (r *Room) controllerOf(s *scope) *match.Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return s.controller
}
