// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import (
	"fmt"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"
)

// Phase is the match lifecycle stage.
type Phase int

const (
	// PhaseWaiting is a controller that has not been started.
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhaseActive
	PhaseGoalPause
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseGoalPause:
		return "goal_pause"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for p := PhaseWaiting; p <= PhaseEnded; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PhaseWaiting, fmt.Errorf("unknown match phase %q", s)
}

// State is the host-authoritative match state replicated to the peer.
type State struct {
	Player1Score  int
	Player2Score  int
	TimeRemaining float64
	Countdown     int
	Phase         Phase
}

// Result is the outcome of an ended match.
type Result struct {
	Winner  protocol.Side
	Draw    bool
	Player1 int
	Player2 int
}

// resultOf picks the strictly greater score; equal scores are a draw.
func resultOf(s State) Result {
	r := Result{Player1: s.Player1Score, Player2: s.Player2Score}
	switch {
	case s.Player1Score > s.Player2Score:
		r.Winner = protocol.SideLeft
	case s.Player2Score > s.Player1Score:
		r.Winner = protocol.SideRight
	default:
		r.Draw = true
	}
	return r
}

func (r Result) String() string {
	if r.Draw {
		return "draw"
	}
	if r.Winner == protocol.SideLeft {
		return "player1"
	}
	return "player2"
}
