// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package room

import "errors"

var (
	// ErrNoSession indicates the room has no live relay session.
	ErrNoSession = errors.New("no active session")

	// ErrNotHost indicates a host-only operation was called on a guest.
	ErrNotHost = errors.New("only the host can do this")

	// ErrNotEnoughPeers indicates a match start with fewer than two connected participants.
	ErrNotEnoughPeers = errors.New("waiting for another player to connect")
)
