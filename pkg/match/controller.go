// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package match

import (
	"sort"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/metrics"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"

	"github.com/sirupsen/logrus"
)

// World is the game simulation the controller drives. Rendering, physics
// and input live behind it.
type World interface {
	SetMovement(enabled bool)
	SetSimulation(enabled bool)
	SpawnBall()
	// PositionParticipants places participants at their spawns, first id at
	// player 1's spawn.
	PositionParticipants(order []protocol.ParticipantID)
}

// Publisher broadcasts match messages to the remote peer.
type Publisher interface {
	Publish(msg protocol.Message)
}

// Locker freezes the selection list once a match starts.
type Locker interface {
	Lock()
	Unlock()
}

// Config holds match timings.
type Config struct {
	CountdownFrom       int
	MatchDuration       time.Duration
	CelebrationDuration time.Duration
	ResetDelay          time.Duration
	TickInterval        time.Duration

	// ScoreLimit ends the match as soon as a side reaches it. Zero disables it.
	ScoreLimit int
}

func DefaultConfig() Config {
	return Config{
		CountdownFrom:       3,
		MatchDuration:       300 * time.Second,
		CelebrationDuration: 5 * time.Second,
		ResetDelay:          5 * time.Second,
		TickInterval:        time.Second,
	}
}

// Controller runs one match on the host. All time flows in through Advance,
// so the controller is deterministic under test. Side effects on World and
// Publisher run after the internal lock is released, in the order they
// were produced.
type Controller struct {
	cfg        Config
	world      World
	pub        Publisher
	selections Locker

	mu           sync.Mutex
	state        State
	participants []protocol.ParticipantID
	stopped      bool

	countdownAcc time.Duration
	timerAcc     time.Duration

	celebrating     bool
	celebrationLeft time.Duration
	resetting       bool
	resetLeft       time.Duration

	effects      []func()
	endListeners map[uint64]func(Result)
	nextListener uint64
}

// NewController creates a controller in PhaseWaiting. selections may be nil.
func NewController(cfg Config, world World, pub Publisher, selections Locker) *Controller {
	return &Controller{
		cfg:          cfg,
		world:        world,
		pub:          pub,
		selections:   selections,
		endListeners: make(map[uint64]func(Result)),
	}
}

// State returns a snapshot of the match state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Participants returns the match participants in spawn order.
func (c *Controller) Participants() []protocol.ParticipantID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ParticipantID(nil), c.participants...)
}

// OnEnd registers fn for the match result and returns its unsubscribe func.
func (c *Controller) OnEnd(fn func(Result)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.endListeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.endListeners, id)
	}
}

// Start begins the countdown. roster must hold at least two participants
// with a choice of 0 or more; the two lowest ids play.
func (c *Controller) Start(roster []protocol.Selection) error {
	ids := make([]protocol.ParticipantID, 0, len(roster))
	for _, s := range roster {
		if s.ChoiceIndex >= 0 {
			ids = append(ids, s.ParticipantID)
		}
	}
	if len(ids) < 2 {
		return ErrNotEnoughParticipants
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ids = ids[:2]

	c.mu.Lock()
	if c.state.Phase != PhaseWaiting || c.stopped {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.participants = ids
	c.state = State{
		Countdown:     c.cfg.CountdownFrom,
		TimeRemaining: c.cfg.MatchDuration.Seconds(),
		Phase:         PhaseCountdown,
	}
	if c.selections != nil {
		c.effect(c.selections.Lock)
	}
	c.effect(func() {
		c.world.SetMovement(false)
		c.world.PositionParticipants(ids)
	})
	c.publish(protocol.MatchPhaseChanged{Phase: PhaseCountdown.String()})
	c.publish(protocol.ScoreChanged{})
	c.publish(protocol.TimerTick{Remaining: c.state.TimeRemaining})
	c.publish(protocol.CountdownTick{Value: c.state.Countdown})
	if c.state.Countdown <= 0 {
		c.enterActiveLocked()
	}
	fx := c.takeEffects()
	c.mu.Unlock()

	logrus.Infof("match starting with participants %v", ids)
	run(fx)
	return nil
}

// Advance moves the match clock forward by dt.
func (c *Controller) Advance(dt time.Duration) {
	c.mu.Lock()
	for dt > 0 && !c.stopped {
		next, ok := c.nextEventLocked()
		if !ok {
			break
		}
		if next > dt {
			c.elapseLocked(dt)
			break
		}
		c.elapseLocked(next)
		dt -= next
		c.fireLocked()
	}
	fx := c.takeEffects()
	c.mu.Unlock()
	run(fx)
}

// RecordGoal scores for side. It is ignored outside PhaseActive.
func (c *Controller) RecordGoal(side protocol.Side) bool {
	c.mu.Lock()
	if c.state.Phase != PhaseActive || c.stopped || side == protocol.SideNone {
		c.mu.Unlock()
		return false
	}

	score := 0
	if side == protocol.SideLeft {
		c.state.Player1Score++
		score = c.state.Player1Score
	} else {
		c.state.Player2Score++
		score = c.state.Player2Score
	}
	metrics.GoalsTotal.WithLabelValues(side.String()).Inc()
	c.publish(protocol.ScoreChanged{Player1: c.state.Player1Score, Player2: c.state.Player2Score})
	c.publish(protocol.GoalCelebration{Side: side})

	if c.cfg.ScoreLimit > 0 && score >= c.cfg.ScoreLimit {
		c.endLocked()
	} else {
		c.state.Phase = PhaseGoalPause
		c.celebrating, c.celebrationLeft = true, c.cfg.CelebrationDuration
		c.resetting, c.resetLeft = true, c.cfg.ResetDelay
		c.effect(func() {
			c.world.SetMovement(false)
			c.world.SetSimulation(false)
		})
		c.publish(protocol.MatchPhaseChanged{Phase: PhaseGoalPause.String()})
		c.settlePauseLocked()
	}
	p1, p2 := c.state.Player1Score, c.state.Player2Score
	fx := c.takeEffects()
	c.mu.Unlock()

	logrus.Infof("goal for %s, score %d-%d", side, p1, p2)
	run(fx)
	return true
}

// Stop cancels the match without producing a result, e.g. when the peer
// leaves. It freezes the world and makes every later call a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped || c.state.Phase == PhaseEnded {
		c.stopped = true
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.state.Phase != PhaseWaiting
	if started {
		c.effect(func() {
			c.world.SetMovement(false)
			c.world.SetSimulation(false)
		})
	}
	fx := c.takeEffects()
	c.mu.Unlock()

	logrus.Infof("match stopped")
	run(fx)
}

// Stopped reports whether Stop was called.
func (c *Controller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// nextEventLocked returns the time until the next scheduled transition.
func (c *Controller) nextEventLocked() (time.Duration, bool) {
	switch c.state.Phase {
	case PhaseCountdown:
		return c.cfg.TickInterval - c.countdownAcc, true
	case PhaseActive:
		return c.cfg.TickInterval - c.timerAcc, true
	case PhaseGoalPause:
		var next time.Duration
		ok := false
		if c.celebrating {
			next, ok = c.celebrationLeft, true
		}
		if c.resetting && (!ok || c.resetLeft < next) {
			next, ok = c.resetLeft, true
		}
		return next, ok
	}
	return 0, false
}

func (c *Controller) elapseLocked(d time.Duration) {
	switch c.state.Phase {
	case PhaseCountdown:
		c.countdownAcc += d
	case PhaseActive:
		c.timerAcc += d
	case PhaseGoalPause:
		if c.celebrating {
			c.celebrationLeft -= d
		}
		if c.resetting {
			c.resetLeft -= d
		}
	}
}

func (c *Controller) fireLocked() {
	switch c.state.Phase {
	case PhaseCountdown:
		c.countdownAcc = 0
		c.state.Countdown--
		c.publish(protocol.CountdownTick{Value: c.state.Countdown})
		if c.state.Countdown <= 0 {
			c.enterActiveLocked()
		}
	case PhaseActive:
		c.timerAcc = 0
		c.state.TimeRemaining -= c.cfg.TickInterval.Seconds()
		if c.state.TimeRemaining < 0 {
			c.state.TimeRemaining = 0
		}
		c.publish(protocol.TimerTick{Remaining: c.state.TimeRemaining})
		if c.state.TimeRemaining == 0 {
			c.endLocked()
		}
	case PhaseGoalPause:
		c.settlePauseLocked()
	}
}

func (c *Controller) enterActiveLocked() {
	c.state.Countdown = 0
	c.state.Phase = PhaseActive
	c.timerAcc = 0
	c.effect(func() {
		c.world.SpawnBall()
		c.world.SetSimulation(true)
		c.world.SetMovement(true)
	})
	c.publish(protocol.MatchPhaseChanged{Phase: PhaseActive.String()})
}

// settlePauseLocked completes whichever pause steps have run out and
// resumes play only when both are done.
func (c *Controller) settlePauseLocked() {
	if c.celebrating && c.celebrationLeft <= 0 {
		c.celebrating = false
		c.publish(protocol.CelebrationEnded{})
	}
	if c.resetting && c.resetLeft <= 0 {
		c.resetting = false
		order := append([]protocol.ParticipantID(nil), c.participants...)
		c.effect(func() {
			c.world.SpawnBall()
			c.world.PositionParticipants(order)
		})
	}
	if c.celebrating || c.resetting {
		return
	}

	c.state.Phase = PhaseActive
	c.effect(func() {
		c.world.SetSimulation(true)
		c.world.SetMovement(true)
	})
	c.publish(protocol.MatchPhaseChanged{Phase: PhaseActive.String()})
}

// endLocked transitions to PhaseEnded. Callers guarantee the phase is not
// already Ended, so the result is produced exactly once.
func (c *Controller) endLocked() {
	c.state.Phase = PhaseEnded
	c.celebrating, c.resetting = false, false
	result := resultOf(c.state)

	c.effect(func() {
		c.world.SetMovement(false)
		c.world.SetSimulation(false)
	})
	c.publish(protocol.MatchEnded{Winner: result.Winner, Draw: result.Draw, Player1: result.Player1, Player2: result.Player2})
	c.publish(protocol.MatchPhaseChanged{Phase: PhaseEnded.String()})

	listeners := make([]func(Result), 0, len(c.endListeners))
	for _, l := range c.endListeners {
		listeners = append(listeners, l)
	}
	c.effect(func() {
		metrics.MatchesEndedTotal.WithLabelValues(result.String()).Inc()
		logrus.Infof("match ended %d-%d (%s)", result.Player1, result.Player2, result)
		for _, l := range listeners {
			l(result)
		}
	})
}

func (c *Controller) publish(msg protocol.Message) {
	if c.pub == nil {
		return
	}
	c.effect(func() { c.pub.Publish(msg) })
}

func (c *Controller) effect(fn func()) {
	c.effects = append(c.effects, fn)
}

func (c *Controller) takeEffects() []func() {
	fx := c.effects
	c.effects = nil
	return fx
}

func run(fx []func()) {
	for _, f := range fx {
		f()
	}
}
