// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import (
	"fmt"
	"os"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/common"

	"gopkg.in/yaml.v3"
)

// Profile is the tunable shape of a match, loaded from YAML.
type Profile struct {
	Countdown           int           `yaml:"countdown"`
	MatchDuration       time.Duration `yaml:"match_duration"`
	CelebrationDuration time.Duration `yaml:"celebration_duration"`
	ResetDelay          time.Duration `yaml:"reset_delay"`
	ScoreLimit          int           `yaml:"score_limit"`
	RosterSize          int           `yaml:"roster_size"`
	TickInterval        time.Duration `yaml:"tick_interval"`

	// MaxPing and SampleInterval tune the connection health monitor.
	MaxPing        time.Duration `yaml:"max_ping"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// DefaultProfile is a five minute match with four selectable characters.
func DefaultProfile() Profile {
	cfg := DefaultConfig()
	return Profile{
		Countdown:           cfg.CountdownFrom,
		MatchDuration:       cfg.MatchDuration,
		CelebrationDuration: cfg.CelebrationDuration,
		ResetDelay:          cfg.ResetDelay,
		ScoreLimit:          cfg.ScoreLimit,
		RosterSize:          4,
		TickInterval:        cfg.TickInterval,
		MaxPing:             300 * time.Millisecond,
		SampleInterval:      time.Second,
	}
}

// LoadProfile reads a match profile from path. Fields missing from the
// file keep their defaults, and ${VAR:default} references are expanded.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read match profile: %w", err)
	}

	p := DefaultProfile()
	if err := yaml.Unmarshal([]byte(common.ExpandEnvVars(string(data))), &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse match profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) Validate() error {
	switch {
	case p.Countdown < 0:
		return fmt.Errorf("%w: countdown must be non-negative, got %d", ErrInvalidProfile, p.Countdown)
	case p.MatchDuration <= 0:
		return fmt.Errorf("%w: match_duration must be positive", ErrInvalidProfile)
	case p.CelebrationDuration < 0 || p.ResetDelay < 0:
		return fmt.Errorf("%w: pause durations must be non-negative", ErrInvalidProfile)
	case p.ScoreLimit < 0:
		return fmt.Errorf("%w: score_limit must be non-negative, got %d", ErrInvalidProfile, p.ScoreLimit)
	case p.RosterSize < 1:
		return fmt.Errorf("%w: roster_size must be at least 1, got %d", ErrInvalidProfile, p.RosterSize)
	case p.TickInterval <= 0:
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalidProfile)
	case p.MaxPing <= 0 || p.SampleInterval <= 0:
		return fmt.Errorf("%w: max_ping and sample_interval must be positive", ErrInvalidProfile)
	}
	return nil
}

// ControllerConfig converts the profile into controller timings.
func (p Profile) ControllerConfig() Config {
	return Config{
		CountdownFrom:       p.Countdown,
		MatchDuration:       p.MatchDuration,
		CelebrationDuration: p.CelebrationDuration,
		ResetDelay:          p.ResetDelay,
		TickInterval:        p.TickInterval,
		ScoreLimit:          p.ScoreLimit,
	}
}
