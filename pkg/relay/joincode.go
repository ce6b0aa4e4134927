// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package relay

import (
	"crypto/rand"
	"math/big"

	"github.com/AccelByte/extend-relay-match/pkg/session"
)

// GenerateJoinCode returns a random canonical join code.
func GenerateJoinCode() (string, error) {
	charset := session.JoinCodeAlphabet
	max := big.NewInt(int64(len(charset)))

	code := make([]byte, session.JoinCodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
