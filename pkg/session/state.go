// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

// State is the relay connection lifecycle of the local peer.
//
//	Uninitialised -> Initialising -> Ready | Error
//	Ready -> Hosting          (CreateSession)
//	Ready -> Joining -> Joined | Error | Ready
//	Hosting | Joined -> Ready (Reset)
//	any -> Initialising       (VerifyAndRecover)
type State int

const (
	StateUninitialised State = iota
	StateInitialising
	StateReady
	StateHosting
	StateJoining
	StateJoined
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateInitialising:
		return "initialising"
	case StateReady:
		return "ready"
	case StateHosting:
		return "hosting"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateError:
		return "error"
	}
	return "unknown"
}

// InSession reports whether the peer currently holds a live relay session.
func (s State) InSession() bool {
	return s == StateHosting || s == StateJoined
}

// Role selects how the transport binds to an allocation.
type Role int

const (
	RoleHost Role = iota
	RoleGuest
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "guest"
}
