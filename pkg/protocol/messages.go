// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package protocol

// Kind names a replication message on the wire.
type Kind string

const (
	KindSelectionUpsert   Kind = "selection.upsert"
	KindSelectionRemove   Kind = "selection.remove"
	KindSelectionSubmit   Kind = "selection.submit"
	KindSelectionQuery    Kind = "selection.query"
	KindSelectionConfirm  Kind = "selection.confirm"
	KindMatchPhaseChanged Kind = "match.phase"
	KindScoreChanged      Kind = "match.score"
	KindGoalCelebration   Kind = "match.goal"
	KindCelebrationEnded  Kind = "match.goal_end"
	KindCountdownTick     Kind = "match.countdown"
	KindTimerTick         Kind = "match.timer"
	KindMatchEnded        Kind = "match.ended"
	KindPingSample        Kind = "health.ping"
	KindPeerLeft          Kind = "session.peer_left"
)

// Message is implemented by every replication message.
type Message interface {
	Kind() Kind
}

// SelectionUpsert is broadcast by the host whenever a participant's choice
// is inserted or replaced. Seq increases per participant.
type SelectionUpsert struct {
	ParticipantID ParticipantID
	Choice        int
	Seq           uint64
}

// SelectionRemove is broadcast by the host when a participant's entry is removed.
type SelectionRemove struct {
	ParticipantID ParticipantID
	Seq           uint64
}

// SelectionSubmit is sent by a peer asking the host to record its choice.
type SelectionSubmit struct {
	ParticipantID ParticipantID
	Choice        int
}

// SelectionQuery asks the host whether it holds the sender's choice.
type SelectionQuery struct {
	ParticipantID ParticipantID
	Choice        int
}

// SelectionConfirm answers a SelectionQuery. Confirmed=false asks the peer to resubmit.
type SelectionConfirm struct {
	ParticipantID ParticipantID
	Confirmed     bool
}

type MatchPhaseChanged struct {
	Phase string
}

type ScoreChanged struct {
	Player1 int
	Player2 int
}

// GoalCelebration starts the presentation-side celebration for the scoring side.
type GoalCelebration struct {
	Side Side
}

type CelebrationEnded struct{}

type CountdownTick struct {
	Value int
}

type TimerTick struct {
	Remaining float64
}

// MatchEnded carries the final result. Winner is SideNone when Draw is set.
type MatchEnded struct {
	Winner  Side
	Draw    bool
	Player1 int
	Player2 int
}

// PingSample is the latest round-trip time measured by the host for a peer.
type PingSample struct {
	ParticipantID   ParticipantID
	RoundTripMillis int
}

// PeerLeft tells the remaining peer that the other side disconnected.
type PeerLeft struct {
	ParticipantID ParticipantID
}

func (SelectionUpsert) Kind() Kind   { return KindSelectionUpsert }
func (SelectionRemove) Kind() Kind   { return KindSelectionRemove }
func (SelectionSubmit) Kind() Kind   { return KindSelectionSubmit }
func (SelectionQuery) Kind() Kind    { return KindSelectionQuery }
func (SelectionConfirm) Kind() Kind  { return KindSelectionConfirm }
func (MatchPhaseChanged) Kind() Kind { return KindMatchPhaseChanged }
func (ScoreChanged) Kind() Kind      { return KindScoreChanged }
func (GoalCelebration) Kind() Kind   { return KindGoalCelebration }
func (CelebrationEnded) Kind() Kind  { return KindCelebrationEnded }
func (CountdownTick) Kind() Kind     { return KindCountdownTick }
func (TimerTick) Kind() Kind         { return KindTimerTick }
func (MatchEnded) Kind() Kind        { return KindMatchEnded }
func (PingSample) Kind() Kind        { return KindPingSample }
func (PeerLeft) Kind() Kind          { return KindPeerLeft }

// Envelope pairs a decoded message with the connection it arrived from.
type Envelope struct {
	From    ParticipantID
	Message Message
}
