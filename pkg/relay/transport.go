// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AccelByte/extend-relay-match/pkg/loop"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotConfigured is returned when sending on a transport that has no allocation.
	ErrNotConfigured = errors.New("relay transport not configured")

	// ErrUnknownPeer is returned when addressing a participant that is not connected.
	ErrUnknownPeer = errors.New("unknown peer")
)

type EventType int

const (
	EventPeerConnected EventType = iota
	EventPeerDisconnected
	EventMessage
)

// Event is delivered on Transport.Events.
type Event struct {
	Type        EventType
	Participant protocol.ParticipantID
	Message     protocol.Message
}

type TransportConfig struct {
	// HeartbeatInterval is how often a liveness frame is published.
	HeartbeatInterval time.Duration
	// PeerTimeout drops a peer that has been silent this long.
	PeerTimeout time.Duration
	EventBuffer int
	Tickers     loop.TickerCreator
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HeartbeatInterval: time.Second,
		PeerTimeout:       5 * time.Second,
		EventBuffer:       64,
	}
}

// Transport relays frames between the peers of one allocation over a Redis
// pub/sub channel. It implements session.Transport and
// session.ConnectNotifier.
type Transport struct {
	client *redis.Client
	cfg    TransportConfig
	events chan Event

	mu          sync.Mutex
	configured  bool
	self        protocol.ParticipantID
	role        session.Role
	channel     string
	sub         *redis.PubSub
	cancel      context.CancelFunc
	done        chan struct{}
	connected   bool
	connectedCh chan struct{}
	peers       map[protocol.ParticipantID]time.Time
	pending     map[uint64]chan struct{}
	nonce       uint64
}

func NewTransport(client *redis.Client, cfg TransportConfig) *Transport {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Second
	}
	if cfg.PeerTimeout <= 0 {
		cfg.PeerTimeout = 5 * cfg.HeartbeatInterval
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Tickers == nil {
		cfg.Tickers = loop.NewTickerCreator()
	}
	return &Transport{
		client:      client,
		cfg:         cfg,
		events:      make(chan Event, cfg.EventBuffer),
		connectedCh: make(chan struct{}),
	}
}

// Events delivers peer and message events for the lifetime of the transport.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Configure joins the allocation's channel. The host always takes
// protocol.HostID; guests are numbered from 1 in join order.
func (t *Transport) Configure(ctx context.Context, alloc session.Allocation, role session.Role) error {
	if err := t.Shutdown(ctx); err != nil {
		logrus.Warnf("failed to shut down previous relay connection: %v", err)
	}

	self := protocol.HostID
	if role == session.RoleGuest {
		n, err := t.client.Incr(ctx, peerSeqPrefix+alloc.ID).Result()
		if err != nil {
			return fmt.Errorf("failed to assign participant id: %w", err)
		}
		self = protocol.ParticipantID(n)
	}

	channel := channelPrefix + alloc.ID
	sub := t.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to relay channel: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.configured = true
	t.self = self
	t.role = role
	t.channel = channel
	t.sub = sub
	t.cancel = cancel
	t.done = done
	t.peers = make(map[protocol.ParticipantID]time.Time)
	t.pending = make(map[uint64]chan struct{})
	t.connected = false
	t.connectedCh = make(chan struct{})
	if role == session.RoleHost {
		t.markConnectedLocked()
	}
	t.mu.Unlock()

	go t.run(runCtx, sub.Channel(), done)

	if err := t.publish(ctx, frame{Type: frameHello, From: self, Broadcast: true}); err != nil {
		_ = t.Shutdown(ctx)
		return err
	}

	logrus.Infof("relay transport configured as %s participant %s on allocation %s", role, self, alloc.ID)
	return nil
}

// Shutdown leaves the channel. It is a no-op when not configured.
func (t *Transport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if !t.configured {
		t.mu.Unlock()
		return nil
	}
	self := t.self
	sub, cancel, done := t.sub, t.cancel, t.done
	t.mu.Unlock()

	if err := t.publish(ctx, frame{Type: frameBye, From: self, Broadcast: true}); err != nil {
		logrus.Debugf("failed to announce departure: %v", err)
	}

	cancel()
	closeErr := sub.Close()
	<-done

	t.mu.Lock()
	t.configured = false
	t.connected = false
	t.peers = nil
	for nonce, ch := range t.pending {
		close(ch)
		delete(t.pending, nonce)
	}
	t.mu.Unlock()
	return closeErr
}

func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Connected is closed once the transport can reach the other side.
func (t *Transport) Connected() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectedCh
}

// Self returns this peer's participant id.
func (t *Transport) Self() protocol.ParticipantID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.self
}

// Participants lists every connected participant including self, in
// ascending id order.
func (t *Transport) Participants() []protocol.ParticipantID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.configured {
		return nil
	}
	ids := []protocol.ParticipantID{t.self}
	for id := range t.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Send delivers msg to a single participant.
func (t *Transport) Send(ctx context.Context, to protocol.ParticipantID, msg protocol.Message) error {
	return t.sendData(ctx, frame{To: to}, msg)
}

// Broadcast delivers msg to every other participant.
func (t *Transport) Broadcast(ctx context.Context, msg protocol.Message) error {
	return t.sendData(ctx, frame{Broadcast: true}, msg)
}

// RoundTripTime pings participant and measures the time to its pong.
func (t *Transport) RoundTripTime(ctx context.Context, participant protocol.ParticipantID) (time.Duration, error) {
	t.mu.Lock()
	if !t.configured {
		t.mu.Unlock()
		return 0, ErrNotConfigured
	}
	if _, ok := t.peers[participant]; !ok {
		t.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrUnknownPeer, participant)
	}
	t.nonce++
	nonce := t.nonce
	pong := make(chan struct{})
	t.pending[nonce] = pong
	self := t.self
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, nonce)
		t.mu.Unlock()
	}()

	start := time.Now()
	if err := t.publish(ctx, frame{Type: framePing, From: self, To: participant, Nonce: nonce}); err != nil {
		return 0, err
	}

	select {
	case _, ok := <-pong:
		if !ok {
			return 0, ErrNotConfigured
		}
		return time.Since(start), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (t *Transport) sendData(ctx context.Context, f frame, msg protocol.Message) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if !t.configured {
		t.mu.Unlock()
		return ErrNotConfigured
	}
	f.Type = frameData
	f.From = t.self
	f.Payload = payload
	t.mu.Unlock()

	return t.publish(ctx, f)
}

func (t *Transport) publish(ctx context.Context, f frame) error {
	t.mu.Lock()
	channel := t.channel
	t.mu.Unlock()

	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	if err := t.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s frame: %w", f.Type, err)
	}
	return nil
}

func (t *Transport) run(ctx context.Context, msgs <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	beat, stop := t.cfg.Tickers.Create(t.cfg.HeartbeatInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			f, err := decodeFrame([]byte(m.Payload))
			if err != nil {
				logrus.Warnf("dropping malformed relay frame: %v", err)
				continue
			}
			t.handle(ctx, f)
		case now := <-beat:
			t.heartbeat(ctx, now)
		}
	}
}

func (t *Transport) handle(ctx context.Context, f frame) {
	t.mu.Lock()
	self := t.self
	if !f.addressedTo(self) {
		t.mu.Unlock()
		return
	}

	var events []Event
	_, known := t.peers[f.From]
	if f.Type == frameBye {
		if known {
			delete(t.peers, f.From)
			events = append(events, Event{Type: EventPeerDisconnected, Participant: f.From})
			t.lostPeerLocked(f.From)
		}
	} else {
		t.peers[f.From] = time.Now()
		if !known {
			events = append(events, Event{Type: EventPeerConnected, Participant: f.From})
			if f.From == protocol.HostID {
				t.markConnectedLocked()
			}
		}
	}

	var reply *frame
	switch f.Type {
	case frameHello:
		reply = &frame{Type: frameWelcome, From: self, To: f.From}
	case framePing:
		reply = &frame{Type: framePong, From: self, To: f.From, Nonce: f.Nonce}
	case framePong:
		if ch, ok := t.pending[f.Nonce]; ok {
			delete(t.pending, f.Nonce)
			close(ch)
		}
	case frameData:
		msg, err := protocol.Decode(f.Payload)
		if err != nil {
			logrus.Warnf("dropping undecodable message from %s: %v", f.From, err)
		} else {
			events = append(events, Event{Type: EventMessage, Participant: f.From, Message: msg})
		}
	}
	t.mu.Unlock()

	if reply != nil {
		if err := t.publish(ctx, *reply); err != nil {
			logrus.Warnf("failed to answer %s frame: %v", f.Type, err)
		}
	}
	t.emit(ctx, events...)
}

func (t *Transport) heartbeat(ctx context.Context, now time.Time) {
	t.mu.Lock()
	self := t.self
	var events []Event
	for id, seen := range t.peers {
		if now.Sub(seen) > t.cfg.PeerTimeout {
			delete(t.peers, id)
			events = append(events, Event{Type: EventPeerDisconnected, Participant: id})
			t.lostPeerLocked(id)
		}
	}
	t.mu.Unlock()

	for _, ev := range events {
		logrus.Warnf("peer %s timed out", ev.Participant)
	}
	if err := t.publish(ctx, frame{Type: frameBeat, From: self, Broadcast: true}); err != nil {
		logrus.Debugf("failed to publish heartbeat: %v", err)
	}
	t.emit(ctx, events...)
}

// lostPeerLocked drops the guest's connection when the host goes away.
func (t *Transport) lostPeerLocked(id protocol.ParticipantID) {
	if t.role == session.RoleGuest && id == protocol.HostID && t.connected {
		t.connected = false
		t.connectedCh = make(chan struct{})
	}
}

func (t *Transport) markConnectedLocked() {
	if t.connected {
		return
	}
	t.connected = true
	close(t.connectedCh)
}

func (t *Transport) emit(ctx context.Context, events ...Event) {
	for _, ev := range events {
		select {
		case t.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
