// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package health samples peer round-trip times on the host.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/loop"
	"github.com/AccelByte/extend-relay-match/pkg/metrics"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
)

// Prober measures the round-trip time to a connected participant.
type Prober interface {
	RoundTripTime(ctx context.Context, participant protocol.ParticipantID) (time.Duration, error)
}

type Publisher interface {
	Publish(msg protocol.Message)
}

// Sample is one round-trip measurement.
type Sample struct {
	RoundTripMillis int
	Timestamp       time.Time
}

type Config struct {
	Interval      time.Duration
	SampleTimeout time.Duration
	// Window is how many samples are kept per participant for Average.
	Window  int
	MaxPing time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:      time.Second,
		SampleTimeout: 500 * time.Millisecond,
		Window:        5,
		MaxPing:       DefaultMaxPing,
	}
}

// Monitor periodically samples every remote participant. It runs on the
// host only; the host itself is never sampled.
type Monitor struct {
	cfg          Config
	prober       Prober
	participants func() []protocol.ParticipantID
	pub          Publisher
	now          func() time.Time

	mu      sync.RWMutex
	windows map[protocol.ParticipantID]*queue.Queue
	latest  map[protocol.ParticipantID]Sample
}

// NewMonitor creates a monitor. participants lists the currently connected
// participants including the host.
func NewMonitor(cfg Config, prober Prober, participants func() []protocol.ParticipantID, pub Publisher) *Monitor {
	if cfg.Window <= 0 {
		cfg.Window = 5
	}
	return &Monitor{
		cfg:          cfg,
		prober:       prober,
		participants: participants,
		pub:          pub,
		now:          time.Now,
		windows:      make(map[protocol.ParticipantID]*queue.Queue),
		latest:       make(map[protocol.ParticipantID]Sample),
	}
}

// Run samples on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context, ticks loop.TickerCreator) {
	ch, stop := ticks.Create(m.cfg.Interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			m.SampleOnce(ctx)
		}
	}
}

// SampleOnce takes one round of samples. Nothing is sampled unless at least
// two participants are connected. Failed probes are skipped.
func (m *Monitor) SampleOnce(ctx context.Context) {
	connected := m.participants()
	if len(connected) < 2 {
		return
	}

	for _, id := range connected {
		if id == protocol.HostID {
			continue
		}
		rtt, err := m.probe(ctx, id)
		if err != nil {
			logrus.Debugf("skipping ping sample for participant %s: %v", id, err)
			continue
		}
		m.record(id, rtt)
	}
}

// Forget drops the history of a participant that left.
func (m *Monitor) Forget(id protocol.ParticipantID) {
	m.mu.Lock()
	delete(m.windows, id)
	delete(m.latest, id)
	m.mu.Unlock()
	metrics.PeerRoundTripMillis.DeleteLabelValues(id.String())
}

// Latest returns the most recent sample for id.
func (m *Monitor) Latest(id protocol.ParticipantID) (Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.latest[id]
	return s, ok
}

// Average returns the mean round-trip time over the sample window.
func (m *Monitor) Average(id protocol.ParticipantID) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[id]
	if !ok || w.Length() == 0 {
		return 0, false
	}
	total := 0
	for i := 0; i < w.Length(); i++ {
		total += w.Get(i).(Sample).RoundTripMillis
	}
	return time.Duration(total/w.Length()) * time.Millisecond, true
}

// Quality rates the latest sample for id.
func (m *Monitor) Quality(id protocol.ParticipantID) (Quality, bool) {
	s, ok := m.Latest(id)
	if !ok {
		return QualityPoor, false
	}
	return QualityOf(time.Duration(s.RoundTripMillis)*time.Millisecond, m.cfg.MaxPing), true
}

func (m *Monitor) probe(ctx context.Context, id protocol.ParticipantID) (time.Duration, error) {
	if m.cfg.SampleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.SampleTimeout)
		defer cancel()
	}
	return m.prober.RoundTripTime(ctx, id)
}

func (m *Monitor) record(id protocol.ParticipantID, rtt time.Duration) {
	sample := Sample{RoundTripMillis: int(rtt.Milliseconds()), Timestamp: m.now()}

	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		w = queue.New()
		m.windows[id] = w
	}
	w.Add(sample)
	for w.Length() > m.cfg.Window {
		w.Remove()
	}
	m.latest[id] = sample
	m.mu.Unlock()

	metrics.PeerRoundTripMillis.WithLabelValues(id.String()).Set(float64(sample.RoundTripMillis))
	if m.pub != nil {
		m.pub.Publish(protocol.PingSample{ParticipantID: id, RoundTripMillis: sample.RoundTripMillis})
	}
}
