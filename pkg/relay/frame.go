// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package relay

import (
	"encoding/json"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"
)

type frameType string

const (
	frameHello   frameType = "hello"
	frameWelcome frameType = "welcome"
	frameBye     frameType = "bye"
	frameBeat    frameType = "beat"
	framePing    frameType = "ping"
	framePong    frameType = "pong"
	frameData    frameType = "data"
)

// frame is the unit published on an allocation's channel. Payload carries
// a protocol-encoded message for data frames.
type frame struct {
	Type      frameType              `json:"type"`
	From      protocol.ParticipantID `json:"from"`
	To        protocol.ParticipantID `json:"to"`
	Broadcast bool                   `json:"broadcast,omitempty"`
	Nonce     uint64                 `json:"nonce,omitempty"`
	Payload   []byte                 `json:"payload,omitempty"`
}

func (f frame) addressedTo(id protocol.ParticipantID) bool {
	return f.From != id && (f.Broadcast || f.To == id)
}

func encodeFrame(f frame) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFrame(data []byte) (frame, error) {
	var f frame
	err := json.Unmarshal(data, &f)
	return f, err
}
