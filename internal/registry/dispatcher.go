package registry

import (
	"github.com/skygear-market/messaging/internal/event"
	"github.com/skygear-market/messaging/internal/nlog"

	"github.com/google/uuid"
)

type Scope string

const (
	// Conversation scope delivers to every session subscribed to the target
	// conversation.
	ScopeConversation Scope = "conversation"
	// Notify scope delivers to every session of the target user that is NOT
	// subscribed to the named conversation, so a session sees either the full
	// message or the lightweight notification, never both.
	ScopeNotify Scope = "notify"
)

// Envelope is a routable delivery instruction. The dispatcher applies it to
// the local registry and, when a relay is configured, forwards it to peer
// processes so their registries can do the same.
type Envelope struct {
	Scope          Scope       `json:"scope"`
	Target         string      `json:"target"`
	ConversationID string      `json:"conversation-id,omitempty"`
	Origin         string      `json:"origin"`
	Event          event.Event `json:"event"`
}

// Relay carries envelopes between gateway processes. Deployments on a single
// node run without one.
type Relay interface {
	Publish(env Envelope) error
}

type Dispatcher struct {
	registry *Registry
	relay    Relay
	origin   string
	logger   nlog.Logger
}

func NewDispatcher(registry *Registry, relay Relay, logger nlog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		relay:    relay,
		origin:   uuid.New().String(),
		logger:   logger,
	}
}

// ToConversation broadcasts to every session viewing the conversation. A
// non-nil except skips that session; the exclusion is inherently local since
// the originating session lives on this process.
func (d *Dispatcher) ToConversation(convID string, ev event.Event, except *Session) {
	d.deliverConversation(convID, ev, except)
	d.relayOut(Envelope{Scope: ScopeConversation, Target: convID, Event: ev})
}

// NotifyUser pushes to the user's sessions that are not viewing the
// conversation the event is about.
func (d *Dispatcher) NotifyUser(userID, convID string, ev event.Event) {
	d.deliverNotify(userID, convID, ev)
	d.relayOut(Envelope{Scope: ScopeNotify, Target: userID, ConversationID: convID, Event: ev})
}

// Apply executes an envelope received from a peer process against the local
// registry. Envelopes that originated here were already delivered locally.
func (d *Dispatcher) Apply(env Envelope) {
	if env.Origin == d.origin {
		return
	}
	switch env.Scope {
	case ScopeConversation:
		d.deliverConversation(env.Target, env.Event, nil)
	case ScopeNotify:
		d.deliverNotify(env.Target, env.ConversationID, env.Event)
	default:
		d.logger.Logf("dropping envelope with unknown scope %q", env.Scope)
	}
}

func (d *Dispatcher) deliverConversation(convID string, ev event.Event, except *Session) {
	for _, s := range d.registry.SessionsSubscribedTo(convID) {
		if s == except {
			continue
		}
		if !s.Enqueue(ev) {
			d.logger.Logf("dropped %s for session %s (outbox full or closed)", ev.Name, s.ID)
		}
	}
}

func (d *Dispatcher) deliverNotify(userID, convID string, ev event.Event) {
	for _, s := range d.registry.SessionsFor(userID) {
		if d.registry.IsSubscribed(s, convID) {
			continue
		}
		if !s.Enqueue(ev) {
			d.logger.Logf("dropped %s for session %s (outbox full or closed)", ev.Name, s.ID)
		}
	}
}

func (d *Dispatcher) relayOut(env Envelope) {
	if d.relay == nil {
		return
	}
	env.Origin = d.origin
	if err := d.relay.Publish(env); err != nil {
		d.logger.Logf("relay publish failed: %v", err)
	}
}
