// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/protocol"
)

// External contracts consumed by the Coordinator. Implementations should
// return *Error values so failures are classified precisely; anything else
// is treated as a transient network failure.

// AuthService signs the local player in to the relay backend.
type AuthService interface {
	SignInAnonymously(ctx context.Context) error
}

// Allocation is a relay slot reserved for a session.
type Allocation struct {
	ID     string
	Region string
}

// RelayService creates and resolves relay allocations.
type RelayService interface {
	CreateAllocation(ctx context.Context, maxPeers int) (Allocation, error)
	GetJoinCode(ctx context.Context, allocationID string) (string, error)
	JoinAllocation(ctx context.Context, code string) (Allocation, error)
}

// KeepAliver is implemented by relay services whose allocations expire
// unless refreshed while a session is hosted.
type KeepAliver interface {
	KeepAlive(ctx context.Context, allocationID string) error
}

// Releaser is implemented by relay services that can drop an allocation
// and its join code before they expire.
type Releaser interface {
	Release(ctx context.Context, allocationID string) error
}

// Transport is the network session bound to an allocation.
// ctx passed to Configure bounds the configure call only, never the session.
type Transport interface {
	Configure(ctx context.Context, alloc Allocation, role Role) error
	Shutdown(ctx context.Context) error
	IsConnected() bool
	RoundTripTime(ctx context.Context, participant protocol.ParticipantID) (time.Duration, error)
}

// ConnectNotifier is optionally implemented by transports that can signal
// connection instead of being polled. The channel is closed once connected.
type ConnectNotifier interface {
	Connected() <-chan struct{}
}

// JoinCodeStore persists the last created join code across restarts.
type JoinCodeStore interface {
	Save(ctx context.Context, code JoinCode) error
	Load(ctx context.Context) (JoinCode, bool, error)
	Clear(ctx context.Context) error
}

// memoryStore keeps nothing beyond the coordinator's own field.
type memoryStore struct{}

func (memoryStore) Save(context.Context, JoinCode) error         { return nil }
func (memoryStore) Load(context.Context) (JoinCode, bool, error) { return JoinCode{}, false, nil }
func (memoryStore) Clear(context.Context) error                  { return nil }
