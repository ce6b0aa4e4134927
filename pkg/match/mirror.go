// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import (
	"sync"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"

	"github.com/sirupsen/logrus"
)

// Mirror is the guest's read-only view of the host's match state.
type Mirror struct {
	mu          sync.RWMutex
	state       State
	result      *Result
	celebrating protocol.Side

	nextListener uint64
	listeners    map[uint64]func(State)
}

func NewMirror() *Mirror {
	return &Mirror{listeners: make(map[uint64]func(State))}
}

// OnChange registers fn to run after every applied message and returns
// its unsubscribe func.
func (m *Mirror) OnChange(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Apply folds a host broadcast into the view. It reports false for
// messages that are not match messages. Once the match has ended the
// view is final and further match messages change nothing.
func (m *Mirror) Apply(msg protocol.Message) bool {
	if !isMatchMessage(msg) {
		return false
	}

	m.mu.Lock()
	if m.state.Phase == PhaseEnded {
		m.mu.Unlock()
		return true
	}
	switch v := msg.(type) {
	case protocol.MatchPhaseChanged:
		p, err := ParsePhase(v.Phase)
		if err != nil {
			m.mu.Unlock()
			logrus.Warnf("ignoring match phase: %v", err)
			return false
		}
		m.state.Phase = p
		if p == PhaseActive {
			m.state.Countdown = 0
		}
	case protocol.ScoreChanged:
		m.state.Player1Score, m.state.Player2Score = v.Player1, v.Player2
	case protocol.GoalCelebration:
		m.celebrating = v.Side
	case protocol.CelebrationEnded:
		m.celebrating = protocol.SideNone
	case protocol.CountdownTick:
		m.state.Countdown = v.Value
	case protocol.TimerTick:
		m.state.TimeRemaining = v.Remaining
	case protocol.MatchEnded:
		m.state.Phase = PhaseEnded
		m.state.Player1Score, m.state.Player2Score = v.Player1, v.Player2
		m.result = &Result{Winner: v.Winner, Draw: v.Draw, Player1: v.Player1, Player2: v.Player2}
	}
	state := m.state
	listeners := make([]func(State), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
	return true
}

func isMatchMessage(msg protocol.Message) bool {
	switch msg.(type) {
	case protocol.MatchPhaseChanged, protocol.ScoreChanged, protocol.GoalCelebration,
		protocol.CelebrationEnded, protocol.CountdownTick, protocol.TimerTick, protocol.MatchEnded:
		return true
	}
	return false
}

func (m *Mirror) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Celebrating returns the side whose goal is being celebrated, or SideNone.
func (m *Mirror) Celebrating() protocol.Side {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.celebrating
}

// Result returns the match result once the host has announced it.
func (m *Mirror) Result() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}
