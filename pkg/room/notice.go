// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package room

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-relay-match/pkg/match"
	"github.com/AccelByte/extend-relay-match/pkg/protocol"
)

type NoticeKind int

const (
	// NoticePeerLeft is raised when the other participant disconnects.
	NoticePeerLeft NoticeKind = iota
	NoticeMatchEnded
)

func (k NoticeKind) String() string {
	if k == NoticePeerLeft {
		return "peer_left"
	}
	return "match_ended"
}

// Notice is a user-facing room event.
type Notice struct {
	Kind        NoticeKind
	Participant protocol.ParticipantID
	Result      match.Result
	Message     string
}

func resultMessage(r match.Result) string {
	if r.Draw {
		return fmt.Sprintf("Draw, %d-%d.", r.Player1, r.Player2)
	}
	if r.Winner == protocol.SideLeft {
		return fmt.Sprintf("Player 1 wins %d-%d.", r.Player1, r.Player2)
	}
	return fmt.Sprintf("Player 2 wins %d-%d.", r.Player1, r.Player2)
}

const peerLeftMessage = "Your opponent left the match."

type noticeBus struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]func(Notice)
}

func newNoticeBus() *noticeBus {
	return &noticeBus{listeners: make(map[uint64]func(Notice))}
}

func (b *noticeBus) subscribe(fn func(Notice)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *noticeBus) publish(n Notice) {
	b.mu.Lock()
	listeners := make([]func(Notice), 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(n)
	}
}
