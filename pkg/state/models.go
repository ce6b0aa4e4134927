// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/session"
)

// JoinCodeRecord is the persisted form of the last join code a host created.
type JoinCodeRecord struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
	Owner     string    `json:"owner"`
	SavedAt   time.Time `json:"savedAt"`
}

func recordFromJoinCode(owner string, code session.JoinCode, now time.Time) JoinCodeRecord {
	return JoinCodeRecord{
		Code:      code.Code,
		CreatedAt: code.CreatedAt,
		Owner:     owner,
		SavedAt:   now,
	}
}

func (r JoinCodeRecord) joinCode() session.JoinCode {
	return session.JoinCode{Code: r.Code, CreatedAt: r.CreatedAt}
}
