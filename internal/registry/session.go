package registry

import (
	"sync"

	"github.com/skygear-market/messaging/internal/event"

	"github.com/google/uuid"
)

const outboxSize = 64

// A Session is one live realtime connection of an authenticated user. It is
// ephemeral: nothing about it survives a disconnect.
type Session struct {
	ID     string
	UserID string

	outbox    chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(userID string) *Session {
	return &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		outbox: make(chan event.Event, outboxSize),
		done:   make(chan struct{}),
	}
}

// Enqueue hands an event to the session's writer without ever blocking the
// caller: a slow or dead consumer loses events instead of stalling the
// broadcast for everyone else.
func (s *Session) Enqueue(ev event.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) Events() <-chan event.Event { return s.outbox }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
