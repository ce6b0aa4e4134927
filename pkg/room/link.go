// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package room

import (
	"context"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/relay"

	"github.com/sirupsen/logrus"
)

// Link is the message channel between this peer and the others.
// *relay.Transport implements it.
type Link interface {
	Self() protocol.ParticipantID
	Participants() []protocol.ParticipantID
	Send(ctx context.Context, to protocol.ParticipantID, msg protocol.Message) error
	Broadcast(ctx context.Context, msg protocol.Message) error
	Events() <-chan relay.Event
	RoundTripTime(ctx context.Context, participant protocol.ParticipantID) (time.Duration, error)
}

// linkSender adapts a Link to the publisher and sender interfaces of the
// selection, match and health packages. Every send is bounded by timeout.
type linkSender struct {
	link    Link
	timeout time.Duration
}

func (s linkSender) Publish(msg protocol.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.link.Broadcast(ctx, msg); err != nil {
		logrus.Warnf("failed to broadcast %s: %v", msg.Kind(), err)
	}
}

func (s linkSender) SendTo(to protocol.ParticipantID, msg protocol.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.link.Send(ctx, to, msg)
}

func (s linkSender) Self() protocol.ParticipantID {
	return s.link.Self()
}

func (s linkSender) SendToHost(msg protocol.Message) error {
	return s.SendTo(protocol.HostID, msg)
}

type noopWorld struct{}

func (noopWorld) SetMovement(bool)                              {}
func (noopWorld) SetSimulation(bool)                            {}
func (noopWorld) SpawnBall()                                    {}
func (noopWorld) PositionParticipants([]protocol.ParticipantID) {}
