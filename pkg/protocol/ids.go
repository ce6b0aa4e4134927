// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package protocol

import (
	"fmt"
	"strconv"
)

// ParticipantID is the transport-assigned connection id of a peer.
// The host always connects first and therefore owns the lowest id.
type ParticipantID uint64

// HostID is the connection id the relay assigns to the hosting peer.
const HostID ParticipantID = 0

// NoSelection marks a participant that has not picked a choice yet.
const NoSelection = -1

func (id ParticipantID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseParticipantID parses the decimal form produced by String.
func ParseParticipantID(s string) (ParticipantID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid participant id %q: %w", s, err)
	}
	return ParticipantID(v), nil
}

// Side identifies a goal / scoring side of the arena.
// Left belongs to player 1 (the host), Right to player 2.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// ParseSide accepts the String form of a side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	case "none", "":
		return SideNone, nil
	}
	return SideNone, fmt.Errorf("unknown side %q", s)
}

// Selection is one participant's entry in the replicated selection list.
type Selection struct {
	ParticipantID ParticipantID `json:"participantId"`
	ChoiceIndex   int           `json:"choiceIndex"`
}
