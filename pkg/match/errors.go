// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import "errors"

var (
	// ErrNotEnoughParticipants indicates fewer than two participants hold a selection.
	ErrNotEnoughParticipants = errors.New("match needs two participants with a selection")

	// ErrAlreadyStarted indicates Start was called on a controller that already ran.
	ErrAlreadyStarted = errors.New("match already started")

	// ErrInvalidProfile indicates a match profile with unusable values.
	ErrInvalidProfile = errors.New("invalid match profile")
)
