package registry

import "sync"

// Registry is the in-memory bookkeeping of live sessions: which sessions a
// user has, and which sessions are viewing a conversation. It is rebuilt from
// zero on restart; cross-process delivery is the relay's job, not this one's.
type Registry struct {
	mu             sync.RWMutex
	byUser         map[string]map[*Session]struct{}
	byConversation map[string]map[*Session]struct{}
	subscriptions  map[*Session]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:         make(map[string]map[*Session]struct{}),
		byConversation: make(map[string]map[*Session]struct{}),
		subscriptions:  make(map[*Session]map[string]struct{}),
	}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byUser[s.UserID] == nil {
		r.byUser[s.UserID] = make(map[*Session]struct{})
	}
	r.byUser[s.UserID][s] = struct{}{}
	r.subscriptions[s] = make(map[string]struct{})
}

// Unregister removes the session and every conversation subscription it held,
// so broadcasts after a disconnect never touch the dead session.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.byUser[s.UserID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
	for convID := range r.subscriptions[s] {
		r.dropSubscription(s, convID)
	}
	delete(r.subscriptions, s)
}

func (r *Registry) Subscribe(s *Session, convID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subscriptions[s]
	if !ok {
		// Not registered (already unregistered by a racing disconnect).
		return
	}
	subs[convID] = struct{}{}
	if r.byConversation[convID] == nil {
		r.byConversation[convID] = make(map[*Session]struct{})
	}
	r.byConversation[convID][s] = struct{}{}
}

func (r *Registry) Unsubscribe(s *Session, convID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.subscriptions[s]; ok {
		delete(subs, convID)
	}
	r.dropSubscription(s, convID)
}

func (r *Registry) dropSubscription(s *Session, convID string) {
	if set, ok := r.byConversation[convID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.byConversation, convID)
		}
	}
}

// SessionsFor snapshots all live sessions of a user.
func (r *Registry) SessionsFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byUser[userID]))
	for s := range r.byUser[userID] {
		sessions = append(sessions, s)
	}
	return sessions
}

// SessionsSubscribedTo snapshots the sessions currently viewing a
// conversation. Iterating the snapshot is safe against concurrent
// register/unregister calls.
func (r *Registry) SessionsSubscribedTo(convID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byConversation[convID]))
	for s := range r.byConversation[convID] {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Registry) IsSubscribed(s *Session, convID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.subscriptions[s][convID]
	return ok
}
