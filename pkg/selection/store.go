// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package selection

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-relay-match/pkg/metrics"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"

	"github.com/sirupsen/logrus"
)

// Publisher broadcasts host mutations to every replica.
type Publisher interface {
	Publish(msg protocol.Message)
}

// EventType describes a change observed on a Store.
type EventType int

const (
	EventUpserted EventType = iota
	EventRemoved
)

// Event is delivered to listeners after the store changed.
type Event struct {
	Type      EventType
	Selection protocol.Selection
}

// Listener receives store events. It runs on the mutating goroutine and
// must not call back into the store's mutating methods.
type Listener func(Event)

// Config configures a Store.
type Config struct {
	// RosterSize bounds valid choice indices to [0, RosterSize). Zero disables the bound.
	RosterSize int

	// Publisher is set on the host copy and nil on replicas.
	Publisher Publisher
}

// Store is the ordered list of participant selections. The host copy is
// authoritative and publishes every mutation; replica copies only accept
// ApplyUpsert/ApplyRemove and discard anything older than what they hold.
//
// Every participant has a monotonically increasing sequence number that
// survives removal, so a stale upsert arriving after a remove cannot
// resurrect the entry.
type Store struct {
	mu        sync.RWMutex
	entries   []protocol.Selection
	seq       map[protocol.ParticipantID]uint64
	locked    bool
	cfg       Config
	listeners map[uint64]Listener
	nextID    uint64
}

func NewStore(cfg Config) *Store {
	return &Store{
		seq:       make(map[protocol.ParticipantID]uint64),
		cfg:       cfg,
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers l and returns its unsubscribe func.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Upsert sets id's choice, replacing any existing entry in place.
// Setting the value already held is a no-op.
func (s *Store) Upsert(id protocol.ParticipantID, choice int) error {
	if err := s.validate(choice); err != nil {
		metrics.SelectionEventsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		metrics.SelectionEventsTotal.WithLabelValues("rejected").Inc()
		return ErrLocked
	}
	if i := s.indexLocked(id); i >= 0 && s.entries[i].ChoiceIndex == choice {
		s.mu.Unlock()
		return nil
	}
	s.seq[id]++
	seq := s.seq[id]
	sel := s.putLocked(id, choice)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	metrics.SelectionEventsTotal.WithLabelValues("upsert").Inc()
	logrus.Debugf("selection upsert participant=%s choice=%d seq=%d", id, choice, seq)
	s.publish(protocol.SelectionUpsert{ParticipantID: id, Choice: choice, Seq: seq})
	notify(listeners, Event{Type: EventUpserted, Selection: sel})
	return nil
}

// Remove deletes id's entry. Removing an absent participant is a no-op.
func (s *Store) Remove(id protocol.ParticipantID) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	sel := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.seq[id]++
	seq := s.seq[id]
	listeners := s.listenersLocked()
	s.mu.Unlock()

	metrics.SelectionEventsTotal.WithLabelValues("remove").Inc()
	s.publish(protocol.SelectionRemove{ParticipantID: id, Seq: seq})
	notify(listeners, Event{Type: EventRemoved, Selection: sel})
}

// Clear removes every entry, publishing a removal for each.
func (s *Store) Clear() {
	for _, sel := range s.Snapshot() {
		s.Remove(sel.ParticipantID)
	}
}

// Resync republishes every entry with its current sequence number so a
// newly connected replica converges. Replicas already up to date discard them.
func (s *Store) Resync() {
	s.mu.RLock()
	msgs := make([]protocol.Message, 0, len(s.entries))
	for _, e := range s.entries {
		msgs = append(msgs, protocol.SelectionUpsert{ParticipantID: e.ParticipantID, Choice: e.ChoiceIndex, Seq: s.seq[e.ParticipantID]})
	}
	s.mu.RUnlock()

	metrics.SelectionEventsTotal.WithLabelValues("resync").Inc()
	for _, m := range msgs {
		s.publish(m)
	}
}

// Get returns id's choice or ErrNotFound.
func (s *Store) Get(id protocol.ParticipantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i].ChoiceIndex, nil
	}
	return protocol.NoSelection, ErrNotFound
}

// Snapshot returns a copy of the entries in insertion order.
func (s *Store) Snapshot() []protocol.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Selection, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Lock freezes selections; Upsert returns ErrLocked until Unlock.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

func (s *Store) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

func (s *Store) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// ApplyUpsert applies a host broadcast on a replica. It reports whether
// the message changed the replica; duplicates and stale resends do not.
func (s *Store) ApplyUpsert(msg protocol.SelectionUpsert) bool {
	s.mu.Lock()
	if msg.Seq <= s.seq[msg.ParticipantID] {
		s.mu.Unlock()
		metrics.SelectionEventsTotal.WithLabelValues("stale").Inc()
		return false
	}
	s.seq[msg.ParticipantID] = msg.Seq
	sel := s.putLocked(msg.ParticipantID, msg.Choice)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Type: EventUpserted, Selection: sel})
	return true
}

// ApplyRemove applies a host removal on a replica. The sequence number is
// kept as a tombstone even when the entry was never seen.
func (s *Store) ApplyRemove(msg protocol.SelectionRemove) bool {
	s.mu.Lock()
	if msg.Seq <= s.seq[msg.ParticipantID] {
		s.mu.Unlock()
		metrics.SelectionEventsTotal.WithLabelValues("stale").Inc()
		return false
	}
	s.seq[msg.ParticipantID] = msg.Seq
	i := s.indexLocked(msg.ParticipantID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	sel := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Type: EventRemoved, Selection: sel})
	return true
}

// Apply dispatches a replication message to ApplyUpsert or ApplyRemove.
// Other messages are ignored.
func (s *Store) Apply(msg protocol.Message) bool {
	switch m := msg.(type) {
	case protocol.SelectionUpsert:
		return s.ApplyUpsert(m)
	case protocol.SelectionRemove:
		return s.ApplyRemove(m)
	}
	return false
}

func (s *Store) validate(choice int) error {
	if choice < protocol.NoSelection {
		return fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
	}
	if s.cfg.RosterSize > 0 && choice >= s.cfg.RosterSize {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChoice, choice, s.cfg.RosterSize)
	}
	return nil
}

func (s *Store) indexLocked(id protocol.ParticipantID) int {
	for i, e := range s.entries {
		if e.ParticipantID == id {
			return i
		}
	}
	return -1
}

func (s *Store) putLocked(id protocol.ParticipantID, choice int) protocol.Selection {
	sel := protocol.Selection{ParticipantID: id, ChoiceIndex: choice}
	if i := s.indexLocked(id); i >= 0 {
		s.entries[i] = sel
	} else {
		s.entries = append(s.entries, sel)
	}
	return sel
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *Store) publish(msg protocol.Message) {
	if s.cfg.Publisher != nil {
		s.cfg.Publisher.Publish(msg)
	}
}

func notify(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}
