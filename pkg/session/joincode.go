// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"fmt"
	"strings"
	"time"
)

const (
	// JoinCodeLength is the exact length of a canonical join code.
	JoinCodeLength = 6

	// JoinCodeTTL is how long a join code stays usable after creation.
	JoinCodeTTL = 30 * time.Minute

	// JoinCodeAlphabet holds every character a canonical join code may contain.
	JoinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// JoinCode is a short human-shareable token resolving to a relay allocation.
type JoinCode struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsZero reports whether no code is held.
func (c JoinCode) IsZero() bool {
	return c.Code == ""
}

// IsExpired reports whether more than JoinCodeTTL has elapsed since creation.
// A code exactly JoinCodeTTL old is still valid.
func (c JoinCode) IsExpired(now time.Time) bool {
	return now.Sub(c.CreatedAt) > JoinCodeTTL
}

// CanonicalJoinCode trims and upper-cases raw input and checks its shape.
// It performs no network access.
func CanonicalJoinCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", fmt.Errorf("join code is empty")
	}
	if len(code) != JoinCodeLength {
		return "", fmt.Errorf("join code must be %d characters, got %d", JoinCodeLength, len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(JoinCodeAlphabet, r) {
			return "", fmt.Errorf("join code contains invalid character %q", r)
		}
	}
	return code, nil
}

// ParseJoinCode is CanonicalJoinCode wrapped in an InvalidInput session error.
func ParseJoinCode(raw string) (string, error) {
	code, err := CanonicalJoinCode(raw)
	if err != nil {
		return "", &Error{Op: OpJoin, Kind: KindInvalidInput, Err: err}
	}
	return code, nil
}
