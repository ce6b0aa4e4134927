// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package room

import (
	"context"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/health"
	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/sirupsen/logrus"
)

// Select records the local participant's choice. The host writes its own
// entry directly; a guest submits to the host and waits for confirmation.
func (r *Room) Select(ctx context.Context, choice int) error {
	s := r.current()
	if s == nil {
		return ErrNoSession
	}
	if s.role == session.RoleGuest {
		return s.reconciler.Reconcile(ctx, choice)
	}

	var err error
	if doErr := r.loop.Do(ctx, func() {
		err = s.store.Upsert(r.link.Self(), choice)
	}); doErr != nil {
		return doErr
	}
	return err
}

// StartMatch begins a match with the current selections. A finished match
// is replaced by a fresh one.
func (r *Room) StartMatch(ctx context.Context) error {
	var err error
	if doErr := r.loop.Do(ctx, func() { err = r.startMatch() }); doErr != nil {
		return doErr
	}
	return err
}

func (r *Room) startMatch() error {
	s := r.current()
	if s == nil {
		return ErrNoSession
	}
	if s.role != session.RoleHost {
		return ErrNotHost
	}
	if len(r.link.Participants()) < 2 {
		return ErrNotEnoughPeers
	}

	if s.controller.State().Phase == match.PhaseEnded || s.controller.Stopped() {
		r.replaceController(s)
	}
	if err := s.controller.Start(s.store.Snapshot()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.matchCancel = cancel
	c := s.controller
	go match.Run(ctx, c, r.tickers, r.cfg.Profile.TickInterval, func(fn func()) {
		r.loop.Post(fn)
	})
	return nil
}

// RecordGoal reports a goal detected by the host's simulation.
func (r *Room) RecordGoal(ctx context.Context, side protocol.Side) (bool, error) {
	var (
		scored bool
		err    error
	)
	doErr := r.loop.Do(ctx, func() {
		s := r.current()
		switch {
		case s == nil:
			err = ErrNoSession
		case s.role != session.RoleHost:
			err = ErrNotHost
		default:
			scored = s.controller.RecordGoal(side)
		}
	})
	if doErr != nil {
		return false, doErr
	}
	return scored, err
}

// Status is a point-in-time view of the room.
type Status struct {
	State            session.State
	Role             string
	JoinCode         string
	Self             protocol.ParticipantID
	Participants     []protocol.ParticipantID
	Selections       []protocol.Selection
	SelectionsLocked bool
	Match            match.State
	Pings            map[protocol.ParticipantID]int
	Quality          map[protocol.ParticipantID]string
}

func (r *Room) Status() Status {
	st := Status{
		State:      r.coord.State(),
		Selections: []protocol.Selection{},
		Pings:      map[protocol.ParticipantID]int{},
		Quality:    map[protocol.ParticipantID]string{},
	}
	if code, ok := r.coord.JoinCode(); ok {
		st.JoinCode = code.Code
	}

	s := r.current()
	if s == nil {
		return st
	}
	st.Role = s.role.String()
	st.Self = r.link.Self()
	st.Participants = r.link.Participants()
	st.Selections = s.store.Snapshot()

	if s.role == session.RoleHost {
		st.Match = r.controllerOf(s).State()
		st.SelectionsLocked = s.store.Locked()
		for _, id := range st.Participants {
			if sample, ok := s.monitor.Latest(id); ok {
				st.Pings[id] = sample.RoundTripMillis
			}
		}
	} else {
		st.Match = s.mirror.State()
		st.SelectionsLocked = st.Match.Phase != match.PhaseWaiting && st.Match.Phase != match.PhaseEnded
		r.mu.RLock()
		for id, ms := range s.pings {
			st.Pings[id] = ms
		}
		r.mu.RUnlock()
	}
	for id, ms := range st.Pings {
		st.Quality[id] = health.QualityOf(time.Duration(ms)*time.Millisecond, r.cfg.Profile.MaxPing).String()
	}
	return st
}

// keepAlive refreshes the relay allocation while hosting.
func (r *Room) keepAlive() {
	if r.cfg.KeepAliveInterval <= 0 {
		return
	}
	ticks, stop := r.tickers.Create(r.cfg.KeepAliveInterval)
	defer stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticks:
			if r.coord.State() != session.StateHosting {
				continue
			}
			if err := r.coord.KeepAlive(r.ctx); err != nil {
				logrus.Warnf("relay keep-alive failed: %v", err)
			}
		}
	}
}
