// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package selection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []protocol.Message
	to   func(protocol.ParticipantID, protocol.Message)
}

func (s *recordingSender) SendTo(to protocol.ParticipantID, msg protocol.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	fn := s.to
	s.mu.Unlock()
	if fn != nil {
		fn(to, msg)
	}
	return nil
}

func TestAuthority_HandleSubmit(t *testing.T) {
	store, _ := newHost(4)
	auth := NewAuthority(store, &recordingSender{}, DefaultAuthorityConfig())

	require.NoError(t, auth.HandleSubmit(1, protocol.SelectionSubmit{ParticipantID: 1, Choice: 2}))
	assert.Equal(t, 2, choiceOf(store, 1))
}

func TestAuthority_RejectsForeignSubmission(t *testing.T) {
	store, _ := newHost(4)
	auth := NewAuthority(store, &recordingSender{}, DefaultAuthorityConfig())

	err := auth.HandleSubmit(1, protocol.SelectionSubmit{ParticipantID: 0, Choice: 2})
	assert.ErrorIs(t, err, ErrForeignSubmission)
	assert.Equal(t, 0, store.Len())
}

func TestAuthority_RateLimitsSubmissions(t *testing.T) {
	store, _ := newHost(4)
	auth := NewAuthority(store, &recordingSender{}, AuthorityConfig{SubmitRate: rate.Every(time.Hour), SubmitBurst: 1})

	require.NoError(t, auth.HandleSubmit(1, protocol.SelectionSubmit{ParticipantID: 1, Choice: 1}))
	assert.ErrorIs(t, auth.HandleSubmit(1, protocol.SelectionSubmit{ParticipantID: 1, Choice: 2}), ErrRateLimited)
	assert.Equal(t, 1, choiceOf(store, 1))

	auth.Forget(1)
	assert.NoError(t, auth.HandleSubmit(1, protocol.SelectionSubmit{ParticipantID: 1, Choice: 2}))
}

func TestAuthority_LockedSubmissionFails(t *testing.T) {
	store, _ := newHost(4)
	store.Lock()
	auth := NewAuthority(store, &recordingSender{}, DefaultAuthorityConfig())

	err := auth.HandleSubmit(1, protocol.SelectionSubmit{ParticipantID: 1, Choice: 1})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAuthority_HandleQuery(t *testing.T) {
	tests := []struct {
		name     string
		held     int
		hasEntry bool
		queried  int
		expected bool
	}{
		{name: "matching", held: 2, hasEntry: true, queried: 2, expected: true},
		{name: "different", held: 1, hasEntry: true, queried: 2, expected: false},
		{name: "missing", queried: 2, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newHost(4)
			if tt.hasEntry {
				require.NoError(t, store.Upsert(1, tt.held))
			}
			sender := &recordingSender{}
			auth := NewAuthority(store, sender, DefaultAuthorityConfig())

			require.NoError(t, auth.HandleQuery(1, protocol.SelectionQuery{ParticipantID: 1, Choice: tt.queried}))

			require.Len(t, sender.sent, 1)
			assert.Equal(t, protocol.SelectionConfirm{ParticipantID: 1, Confirmed: tt.expected}, sender.sent[0])
		})
	}
}

// loopbackPeer wires a Reconciler straight into an Authority. dropSubmits
// discards the first n submissions to simulate a lost message.
type loopbackPeer struct {
	mu          sync.Mutex
	id          protocol.ParticipantID
	auth        *Authority
	dropSubmits int
	silent      bool
	submits     int
}

func (p *loopbackPeer) Self() protocol.ParticipantID { return p.id }

func (p *loopbackPeer) SendToHost(msg protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.silent {
		return nil
	}
	switch m := msg.(type) {
	case protocol.SelectionSubmit:
		p.submits++
		if p.dropSubmits > 0 {
			p.dropSubmits--
			return nil
		}
		return p.auth.HandleSubmit(p.id, m)
	case protocol.SelectionQuery:
		return p.auth.HandleQuery(p.id, m)
	}
	return nil
}

func TestReconciler_ResubmitsLostSelection(t *testing.T) {
	store, _ := newHost(4)
	sender := &recordingSender{}
	auth := NewAuthority(store, sender, DefaultAuthorityConfig())
	peer := &loopbackPeer{id: 1, auth: auth, dropSubmits: 1}

	rec := NewReconciler(peer, ReconcilerConfig{Attempts: 5, Interval: 50 * time.Millisecond})
	sender.to = func(_ protocol.ParticipantID, msg protocol.Message) {
		if c, ok := msg.(protocol.SelectionConfirm); ok {
			rec.Confirm(c)
		}
	}

	require.NoError(t, rec.Reconcile(context.Background(), 3))
	assert.Equal(t, 3, choiceOf(store, 1))
	assert.Equal(t, 2, peer.submits)
}

func TestReconciler_GivesUp(t *testing.T) {
	store, _ := newHost(4)
	peer := &loopbackPeer{id: 1, auth: NewAuthority(store, &recordingSender{}, DefaultAuthorityConfig()), silent: true}

	rec := NewReconciler(peer, ReconcilerConfig{Attempts: 3, Interval: 5 * time.Millisecond})

	assert.ErrorIs(t, rec.Reconcile(context.Background(), 3), ErrNotConfirmed)
}

// rejectingPeer answers every query with a rejection and records when it was asked.
type rejectingPeer struct {
	mu      sync.Mutex
	rec     *Reconciler
	queries []time.Time
}

func (p *rejectingPeer) Self() protocol.ParticipantID { return 1 }

func (p *rejectingPeer) SendToHost(msg protocol.Message) error {
	if _, ok := msg.(protocol.SelectionQuery); !ok {
		return nil
	}
	p.mu.Lock()
	p.queries = append(p.queries, time.Now())
	p.mu.Unlock()
	p.rec.Confirm(protocol.SelectionConfirm{ParticipantID: 1, Confirmed: false})
	return nil
}

func TestReconciler_SpacesQueriesWhenRejected(t *testing.T) {
	interval := 40 * time.Millisecond
	peer := &rejectingPeer{}
	peer.rec = NewReconciler(peer, ReconcilerConfig{Attempts: 4, Interval: interval})

	start := time.Now()
	err := peer.rec.Reconcile(context.Background(), 2)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrNotConfirmed)
	require.Len(t, peer.queries, 4)
	for i := 1; i < len(peer.queries); i++ {
		gap := peer.queries[i].Sub(peer.queries[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "gap before query %d", i+1)
	}
	assert.GreaterOrEqual(t, elapsed, 4*interval-10*time.Millisecond)
}

func TestReconciler_IgnoresOtherParticipants(t *testing.T) {
	peer := &loopbackPeer{id: 1, silent: true}
	rec := NewReconciler(peer, DefaultReconcilerConfig())

	rec.Confirm(protocol.SelectionConfirm{ParticipantID: 2, Confirmed: true})

	select {
	case <-rec.answers:
		t.Fatal("answer for another participant should be ignored")
	default:
	}
}
