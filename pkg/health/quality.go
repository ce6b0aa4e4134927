// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package health

import "time"

// DefaultMaxPing is the round-trip time treated as the edge of playable.
const DefaultMaxPing = 300 * time.Millisecond

// Quality buckets a round-trip time for presentation.
type Quality int

const (
	QualityGood Quality = iota
	QualityMedium
	QualityPoor
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityMedium:
		return "medium"
	}
	return "poor"
}

// QualityOf rates rtt against maxPing in thirds. A non-positive maxPing
// falls back to DefaultMaxPing.
func QualityOf(rtt, maxPing time.Duration) Quality {
	if maxPing <= 0 {
		maxPing = DefaultMaxPing
	}
	switch {
	case rtt <= maxPing/3:
		return QualityGood
	case rtt <= 2*maxPing/3:
		return QualityMedium
	}
	return QualityPoor
}
