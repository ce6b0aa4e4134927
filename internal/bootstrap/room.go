// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/room"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/sirupsen/logrus"
)

// LoadMatchProfile reads the match profile at path, or returns the
// built-in profile when path is empty.
func LoadMatchProfile(path string) (match.Profile, error) {
	if path == "" {
		logrus.Info("no match profile configured, using built-in defaults")
		return match.DefaultProfile(), nil
	}

	profile, err := match.LoadProfile(path)
	if err != nil {
		return match.Profile{}, fmt.Errorf("failed to load match profile from %s: %w", path, err)
	}
	logrus.Infof("loaded match profile from %s (duration %v, roster %d)",
		path, profile.MatchDuration, profile.RosterSize)
	return profile, nil
}

// InitRoom creates the session context that owns selections, the match
// and health sampling for whichever role the coordinator enters.
//
// ============================================================
// DEVELOPER: Game world integration
// ============================================================
// deps.World is driven by the host's match controller (freeze
// movement, spawn the ball, position players). Leave it nil to
// run headless; the room then only replicates state.
// ============================================================
func InitRoom(profile match.Profile, coord *session.Coordinator, link room.Link, keepAlive time.Duration, world match.World) *room.Room {
	cfg := room.DefaultConfig()
	cfg.Profile = profile
	if keepAlive > 0 {
		cfg.KeepAliveInterval = keepAlive
	}

	r := room.New(cfg, room.Dependencies{
		Coordinator: coord,
		Link:        link,
		World:       world,
	})

	r.OnNotice(func(n room.Notice) {
		logrus.Infof("room notice %s: %s", n.Kind, n.Message)
	})

	logrus.Infof("initialized room (roster %d, keep-alive %v)", profile.RosterSize, cfg.KeepAliveInterval)
	return r
}
