// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package selection

import (
	"context"
	"errors"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/retry"

	"github.com/sirupsen/logrus"
)

var errResent = errors.New("host did not hold selection, resent")

type ReconcilerConfig struct {
	Attempts int
	Interval time.Duration
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Attempts: 5, Interval: time.Second}
}

// Reconciler runs on a peer and makes sure the host ends up holding the
// peer's selection, resubmitting whenever the host reports it missing.
type Reconciler struct {
	self ParticipantSender
	cfg  ReconcilerConfig

	answers chan bool
}

// ParticipantSender sends to the host on behalf of one local participant.
type ParticipantSender interface {
	Self() protocol.ParticipantID
	SendToHost(msg protocol.Message) error
}

func NewReconciler(self ParticipantSender, cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{self: self, cfg: cfg, answers: make(chan bool, 1)}
}

// Confirm feeds a host answer into a running Reconcile. Answers arriving
// while nothing is waiting replace any older unread answer.
func (r *Reconciler) Confirm(msg protocol.SelectionConfirm) {
	if msg.ParticipantID != r.self.Self() {
		return
	}
	for {
		select {
		case r.answers <- msg.Confirmed:
			return
		default:
		}
		select {
		case <-r.answers:
		default:
		}
	}
}

// Reconcile submits choice and then queries the host once per interval
// until it confirms, up to the configured number of attempts.
func (r *Reconciler) Reconcile(ctx context.Context, choice int) error {
	id := r.self.Self()
	r.drain()

	if err := r.self.SendToHost(protocol.SelectionSubmit{ParticipantID: id, Choice: choice}); err != nil {
		return err
	}

	err := retry.Do(ctx, retry.Policy{
		Name:           "selection.reconcile",
		MaxAttempts:    r.cfg.Attempts,
		AttemptTimeout: r.cfg.Interval,
	}, func(ctx context.Context, attempt int) error {
		if err := r.self.SendToHost(protocol.SelectionQuery{ParticipantID: id, Choice: choice}); err != nil {
			return err
		}
		// Each attempt lasts the full interval, so a quick rejection still
		// leaves Interval between queries.
		resent := false
		for {
			select {
			case <-ctx.Done():
				if resent {
					return errResent
				}
				return ctx.Err()
			case confirmed := <-r.answers:
				if confirmed {
					return nil
				}
				if resent {
					continue
				}
				if err := r.self.SendToHost(protocol.SelectionSubmit{ParticipantID: id, Choice: choice}); err != nil {
					return err
				}
				resent = true
			}
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logrus.Warnf("selection %d for %s not confirmed: %v", choice, id, err)
		return ErrNotConfirmed
	}
	return nil
}

func (r *Reconciler) drain() {
	for {
		select {
		case <-r.answers:
		default:
			return
		}
	}
}
