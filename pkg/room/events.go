// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package room

import (
	"context"
	"errors"

	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/relay"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/sirupsen/logrus"
)

func (r *Room) handleEvent(ev relay.Event) {
	s := r.current()
	if s == nil {
		logrus.Debugf("dropping relay event %d from %s outside a session", ev.Type, ev.Participant)
		return
	}
	if s.role == session.RoleHost {
		r.handleHostEvent(s, ev)
		return
	}
	r.handleGuestEvent(s, ev)
}

func (r *Room) handleHostEvent(s *scope, ev relay.Event) {
	switch ev.Type {
	case relay.EventPeerConnected:
		logrus.Infof("participant %s connected, resyncing selections", ev.Participant)
		s.store.Resync()

	case relay.EventPeerDisconnected:
		r.peerLeft(s, ev.Participant)

	case relay.EventMessage:
		var err error
		switch msg := ev.Message.(type) {
		case protocol.SelectionSubmit:
			err = s.authority.HandleSubmit(ev.Participant, msg)
		case protocol.SelectionQuery:
			err = s.authority.HandleQuery(ev.Participant, msg)
		default:
			logrus.Debugf("host ignoring %s from %s", msg.Kind(), ev.Participant)
		}
		if err != nil {
			logrus.Warnf("rejected %s from %s: %v", ev.Message.Kind(), ev.Participant, err)
		}
	}
}

// peerLeft removes the participant and sends the room back to the lobby.
// The host's own session stays up.
func (r *Room) peerLeft(s *scope, id protocol.ParticipantID) {
	logrus.Infof("participant %s left", id)

	if s.controller.State().Phase != match.PhaseWaiting {
		s.controller.Stop()
		if s.matchCancel != nil {
			s.matchCancel()
		}
		s.store.Unlock()
		r.replaceController(s)
	}

	s.store.Remove(id)
	s.authority.Forget(id)
	s.monitor.Forget(id)
	r.sender.Publish(protocol.PeerLeft{ParticipantID: id})
	r.notices.publish(Notice{Kind: NoticePeerLeft, Participant: id, Message: peerLeftMessage})
}

func (r *Room) handleGuestEvent(s *scope, ev relay.Event) {
	switch ev.Type {
	case relay.EventPeerDisconnected:
		if ev.Participant != protocol.HostID {
			return
		}
		logrus.Infof("host left, returning to lobby")
		s.store.Clear()
		r.notices.publish(Notice{Kind: NoticePeerLeft, Participant: ev.Participant, Message: peerLeftMessage})
		go func() {
			if err := r.coord.Reset(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.Warnf("failed to reset session after host left: %v", err)
			}
		}()

	case relay.EventMessage:
		r.applyGuestMessage(s, ev.Message)
	}
}

func (r *Room) applyGuestMessage(s *scope, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.SelectionUpsert, protocol.SelectionRemove:
		s.store.Apply(m)
	case protocol.SelectionConfirm:
		s.reconciler.Confirm(m)
	case protocol.PingSample:
		r.mu.Lock()
		s.pings[m.ParticipantID] = m.RoundTripMillis
		r.mu.Unlock()
	case protocol.PeerLeft:
		logrus.Infof("host reports participant %s left", m.ParticipantID)
	case protocol.MatchEnded:
		s.mirror.Apply(m)
		result, _ := s.mirror.Result()
		r.notices.publish(Notice{Kind: NoticeMatchEnded, Result: result, Message: resultMessage(result)})
	default:
		if !s.mirror.Apply(m) {
			logrus.Debugf("guest ignoring %s", m.Kind())
		}
	}
}
