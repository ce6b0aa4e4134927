// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"fmt"
	"time"
)

// Config holds the coordinator's bounds and retry schedule.
type Config struct {
	MaxPeers int

	InitAttempts  int
	InitBaseDelay time.Duration
	AuthTimeout   time.Duration

	AllocationTimeout time.Duration
	VerifyTimeout     time.Duration

	JoinAttempts  int
	JoinBaseDelay time.Duration

	QuiesceTimeout      time.Duration
	ConnectTimeout      time.Duration
	ConnectPollInterval time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		MaxPeers:            2,
		InitAttempts:        3,
		InitBaseDelay:       2 * time.Second,
		AuthTimeout:         10 * time.Second,
		AllocationTimeout:   15 * time.Second,
		VerifyTimeout:       5 * time.Second,
		JoinAttempts:        3,
		JoinBaseDelay:       2 * time.Second,
		QuiesceTimeout:      2 * time.Second,
		ConnectTimeout:      60 * time.Second,
		ConnectPollInterval: 500 * time.Millisecond,
	}
}

// Validate checks the configuration for values the coordinator cannot run with.
func (c Config) Validate() error {
	if c.MaxPeers < 2 {
		return fmt.Errorf("max peers must be at least 2, got %d", c.MaxPeers)
	}
	if c.InitAttempts < 1 || c.JoinAttempts < 1 {
		return fmt.Errorf("attempt counts must be positive")
	}
	if c.AuthTimeout <= 0 || c.AllocationTimeout <= 0 || c.VerifyTimeout <= 0 || c.ConnectTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.ConnectPollInterval <= 0 {
		return fmt.Errorf("connect poll interval must be positive")
	}
	return nil
}
