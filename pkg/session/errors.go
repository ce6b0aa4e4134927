// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/extend-relay-match/pkg/retry"
)

// Kind classifies a session failure. Retry decisions and user-facing
// messages are driven by the kind, never by error text.
type Kind int

const (
	KindInternal Kind = iota
	KindTransientNetwork
	KindInvalidInput
	KindNotFound
	KindExpired
	KindAuthFailure
	KindTimeout
	KindBusy
	KindWrongState
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient network"
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindExpired:
		return "expired"
	case KindAuthFailure:
		return "auth failure"
	case KindTimeout:
		return "timeout"
	case KindBusy:
		return "busy"
	case KindWrongState:
		return "wrong state"
	case KindCancelled:
		return "cancelled"
	}
	return "internal"
}

// Retryable reports whether an operation failing with this kind may succeed on retry.
func (k Kind) Retryable() bool {
	return k == KindTransientNetwork || k == KindTimeout
}

// Op names a coordinator operation in errors and metrics.
type Op string

const (
	OpInitialise Op = "initialise"
	OpCreate     Op = "create"
	OpJoin       Op = "join"
	OpReset      Op = "reset"
	OpRecover    Op = "recover"
	OpKeepAlive  Op = "keepalive"
)

// Error is the error type returned by every Coordinator operation.
type Error struct {
	Op   Op
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("relay session: %s", e.Kind)
	}
	if e.Err == nil {
		return fmt.Sprintf("relay session %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("relay session %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrTransientNetwork = &Error{Kind: KindTransientNetwork}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrAuthFailure      = &Error{Kind: KindAuthFailure}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrInternal         = &Error{Kind: KindInternal}
	ErrBusy             = &Error{Kind: KindBusy}
	ErrWrongState       = &Error{Kind: KindWrongState}
	ErrCancelled        = &Error{Kind: KindCancelled}
)

// KindOf extracts the classification of err.
// Unclassified errors are treated as transient network failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindTransientNetwork
}

// classify wraps err for op, keeping an existing classification.
// An *Error is returned as is, taking op only when it has none.
// Exhausted retries are unwrapped so the last attempt's kind wins.
func classify(op Op, err error) *Error {
	if se, ok := err.(*Error); ok {
		if se.Op == "" {
			return &Error{Op: op, Kind: se.Kind, Err: se.Err}
		}
		return se
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return &Error{Op: op, Kind: KindOf(exhausted.Err), Err: err}
	}
	return &Error{Op: op, Kind: KindOf(err), Err: err}
}

// UserMessage maps an error to text safe to show a player.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindInvalidInput:
		return "That join code is not valid. Codes are 6 letters or digits."
	case KindNotFound, KindExpired:
		return "That join code has expired or does not exist."
	case KindTimeout:
		return "The connection timed out. Please try again."
	case KindAuthFailure:
		return "Could not sign in to the relay service. Please try again."
	case KindBusy:
		return "Already connecting, please wait."
	case KindCancelled:
		return "Connection cancelled."
	}
	return "Connection failed, please try again."
}
