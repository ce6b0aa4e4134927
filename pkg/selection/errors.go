// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package selection

import "errors"

var (
	// ErrNotFound indicates that a participant has no entry in the store.
	ErrNotFound = errors.New("selection not found")

	// ErrLocked indicates that selections are frozen because the match started.
	ErrLocked = errors.New("selections are locked")

	// ErrInvalidChoice indicates a choice index outside the roster.
	ErrInvalidChoice = errors.New("invalid choice index")

	// ErrForeignSubmission indicates a peer tried to set another participant's choice.
	ErrForeignSubmission = errors.New("participant may only submit its own selection")

	// ErrRateLimited indicates a peer is submitting faster than allowed.
	ErrRateLimited = errors.New("selection submissions rate limited")

	// ErrNotConfirmed indicates the host never confirmed the local selection.
	ErrNotConfirmed = errors.New("selection not confirmed by host")
)
