// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package selection

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-relay-match/pkg/metrics"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender delivers a message to one participant.
type Sender interface {
	SendTo(to protocol.ParticipantID, msg protocol.Message) error
}

type AuthorityConfig struct {
	// SubmitRate and SubmitBurst bound inbound submissions per participant.
	SubmitRate  rate.Limit
	SubmitBurst int
}

func DefaultAuthorityConfig() AuthorityConfig {
	return AuthorityConfig{SubmitRate: 5, SubmitBurst: 10}
}

// Authority handles selection traffic arriving at the host from peers.
type Authority struct {
	store  *Store
	sender Sender
	cfg    AuthorityConfig

	mu       sync.Mutex
	limiters map[protocol.ParticipantID]*rate.Limiter
}

func NewAuthority(store *Store, sender Sender, cfg AuthorityConfig) *Authority {
	return &Authority{
		store:    store,
		sender:   sender,
		cfg:      cfg,
		limiters: make(map[protocol.ParticipantID]*rate.Limiter),
	}
}

// HandleSubmit records a peer's own choice.
func (a *Authority) HandleSubmit(from protocol.ParticipantID, msg protocol.SelectionSubmit) error {
	if msg.ParticipantID != from {
		logrus.Warnf("participant %s tried to submit a selection for %s", from, msg.ParticipantID)
		return ErrForeignSubmission
	}
	if !a.limiter(from).Allow() {
		metrics.SelectionEventsTotal.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}
	if err := a.store.Upsert(from, msg.Choice); err != nil {
		return fmt.Errorf("submit from %s: %w", from, err)
	}
	return nil
}

// HandleQuery tells the peer whether the host holds the choice it believes
// it submitted. A negative answer asks the peer to resubmit.
func (a *Authority) HandleQuery(from protocol.ParticipantID, msg protocol.SelectionQuery) error {
	current, err := a.store.Get(from)
	confirmed := err == nil && current == msg.Choice
	if !confirmed {
		logrus.Infof("selection for %s not held (have %d, peer has %d), requesting resend", from, current, msg.Choice)
	}
	return a.sender.SendTo(from, protocol.SelectionConfirm{ParticipantID: from, Confirmed: confirmed})
}

// Forget drops the participant's limiter when it disconnects.
func (a *Authority) Forget(id protocol.ParticipantID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.limiters, id)
}

func (a *Authority) limiter(id protocol.ParticipantID) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[id]
	if !ok {
		l = rate.NewLimiter(a.cfg.SubmitRate, a.cfg.SubmitBurst)
		a.limiters[id] = l
	}
	return l
}
