// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package loop

import "time"

// TickerCreator produces periodic tick channels. The returned func stops
// the ticker.
type TickerCreator interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type realTicker struct{}

// NewTickerCreator returns a TickerCreator backed by time.Ticker.
func NewTickerCreator() TickerCreator {
	return realTicker{}
}

func (realTicker) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
