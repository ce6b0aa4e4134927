// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test profile: %v", err)
	}
	return path
}

func TestLoadProfile(t *testing.T) {
	t.Setenv("TEST_SCORE_LIMIT", "7")
	path := writeProfile(t, `
countdown: 5
match_duration: 2m
celebration_duration: 3s
score_limit: ${TEST_SCORE_LIMIT:0}
roster_size: 6
`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}

	if p.Countdown != 5 {
		t.Errorf("expected countdown 5, got %d", p.Countdown)
	}
	if p.MatchDuration != 2*time.Minute {
		t.Errorf("expected match_duration 2m, got %v", p.MatchDuration)
	}
	if p.ScoreLimit != 7 {
		t.Errorf("expected score_limit from env, got %d", p.ScoreLimit)
	}
	if p.ResetDelay != 5*time.Second {
		t.Errorf("expected default reset_delay, got %v", p.ResetDelay)
	}

	cfg := p.ControllerConfig()
	if cfg.CountdownFrom != 5 || cfg.CelebrationDuration != 3*time.Second || cfg.ScoreLimit != 7 {
		t.Errorf("unexpected controller config: %+v", cfg)
	}
}

func TestLoadProfile_EnvDefault(t *testing.T) {
	path := writeProfile(t, "score_limit: ${UNSET_RELAY_MATCH_LIMIT:3}\n")

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.ScoreLimit != 3 {
		t.Errorf("expected default 3, got %d", p.ScoreLimit)
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "negative countdown", content: "countdown: -1"},
		{name: "zero duration", content: "match_duration: 0s"},
		{name: "negative score limit", content: "score_limit: -2"},
		{name: "empty roster", content: "roster_size: 0"},
		{name: "zero max ping", content: "max_ping: 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, tt.content))
			if !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestLoadProfile_Errors(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadProfile(writeProfile(t, "countdown: [1, 2")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestDefaultProfileIsValid(t *testing.T) {
	if err := DefaultProfile().Validate(); err != nil {
		t.Errorf("default profile should be valid: %v", err)
	}
}
