package registry

import (
	"sync"
	"testing"

	"github.com/skygear-market/messaging/internal/event"
	"github.com/skygear-market/messaging/internal/nlog"
)

func drain(s *Session) []event.Event {
	var out []event.Event
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := NewSession("alice")
	r.Register(s)

	r.Subscribe(s, "c1")
	r.Subscribe(s, "c1")

	if got := len(r.SessionsSubscribedTo("c1")); got != 1 {
		t.Errorf("subscriber count. GOT[%d], EXPECTED[1]", got)
	}

	r.Unsubscribe(s, "c1")
	r.Unsubscribe(s, "c1")

	if got := len(r.SessionsSubscribedTo("c1")); got != 0 {
		t.Errorf("subscriber count after unsubscribe. GOT[%d], EXPECTED[0]", got)
	}
}

func TestUnregisterDropsAllSubscriptions(t *testing.T) {
	r := NewRegistry()
	s := NewSession("alice")
	r.Register(s)
	r.Subscribe(s, "c1")
	r.Subscribe(s, "c2")

	r.Unregister(s)

	if got := len(r.SessionsSubscribedTo("c1")); got != 0 {
		t.Errorf("c1 still has %d subscribers after unregister", got)
	}
	if got := len(r.SessionsSubscribedTo("c2")); got != 0 {
		t.Errorf("c2 still has %d subscribers after unregister", got)
	}
	if got := len(r.SessionsFor("alice")); got != 0 {
		t.Errorf("alice still has %d sessions after unregister", got)
	}
}

func TestSubscribeAfterUnregisterIsNoop(t *testing.T) {
	r := NewRegistry()
	s := NewSession("alice")
	r.Register(s)
	r.Unregister(s)

	r.Subscribe(s, "c1")

	if got := len(r.SessionsSubscribedTo("c1")); got != 0 {
		t.Errorf("an unregistered session must not be subscribable, got %d subscribers", got)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	s := NewSession("alice")
	s.Close()

	if s.Enqueue(event.Make(event.Error, event.ErrorPayload{Message: "x"})) {
		t.Errorf("enqueue on a closed session should report failure")
	}
}

func TestSessionsForTracksMultipleDevices(t *testing.T) {
	r := NewRegistry()
	s1 := NewSession("alice")
	s2 := NewSession("alice")
	r.Register(s1)
	r.Register(s2)

	if got := len(r.SessionsFor("alice")); got != 2 {
		t.Errorf("session count. GOT[%d], EXPECTED[2]", got)
	}

	r.Unregister(s1)
	if got := len(r.SessionsFor("alice")); got != 1 {
		t.Errorf("session count after one disconnect. GOT[%d], EXPECTED[1]", got)
	}
}

// One message, two recipient sessions: the one viewing the conversation gets
// the full message, the other one gets the notification, never both.
func TestDispatcherDeliversExactlyOncePerSession(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, nil, nlog.Discard())

	viewing := NewSession("bob")
	idle := NewSession("bob")
	r.Register(viewing)
	r.Register(idle)
	r.Subscribe(viewing, "c1")

	d.ToConversation("c1", event.Make(event.NewMessage, event.ErrorPayload{}), nil)
	d.NotifyUser("bob", "c1", event.Make(event.MessageNotification, event.ErrorPayload{}))

	got := drain(viewing)
	if len(got) != 1 || got[0].Name != event.NewMessage {
		t.Errorf("viewing session events. GOT[%v], EXPECTED[new-message]", names(got))
	}
	got = drain(idle)
	if len(got) != 1 || got[0].Name != event.MessageNotification {
		t.Errorf("idle session events. GOT[%v], EXPECTED[message-notification]", names(got))
	}
}

func TestDispatcherExcludesOriginatingSession(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, nil, nlog.Discard())

	origin := NewSession("alice")
	other := NewSession("bob")
	r.Register(origin)
	r.Register(other)
	r.Subscribe(origin, "c1")
	r.Subscribe(other, "c1")

	d.ToConversation("c1", event.Make(event.UserTyping, event.TypingPayload{UserID: "alice", ConversationID: "c1"}), origin)

	if got := drain(origin); len(got) != 0 {
		t.Errorf("originating session received its own typing event: %v", names(got))
	}
	if got := drain(other); len(got) != 1 {
		t.Errorf("other session events. GOT[%d], EXPECTED[1]", len(got))
	}
}

type capturingRelay struct {
	published []Envelope
}

func (c *capturingRelay) Publish(env Envelope) error {
	c.published = append(c.published, env)
	return nil
}

func TestDispatcherIgnoresItsOwnRelayedEnvelopes(t *testing.T) {
	r := NewRegistry()
	relay := &capturingRelay{}
	d := NewDispatcher(r, relay, nlog.Discard())

	s := NewSession("bob")
	r.Register(s)
	r.Subscribe(s, "c1")

	d.ToConversation("c1", event.Make(event.NewMessage, event.ErrorPayload{}), nil)
	if len(relay.published) != 1 {
		t.Fatalf("publish count. GOT[%d], EXPECTED[1]", len(relay.published))
	}

	// The envelope comes back, as it would from the pub/sub loop.
	d.Apply(relay.published[0])

	if got := drain(s); len(got) != 1 {
		t.Errorf("own envelope was applied twice, session saw %d events", len(got))
	}
}

func TestDispatcherAppliesPeerEnvelopes(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, nil, nlog.Discard())

	viewing := NewSession("bob")
	idle := NewSession("bob")
	r.Register(viewing)
	r.Register(idle)
	r.Subscribe(viewing, "c1")

	d.Apply(Envelope{
		Scope:  ScopeConversation,
		Target: "c1",
		Origin: "some-other-node",
		Event:  event.Make(event.NewMessage, event.ErrorPayload{}),
	})
	d.Apply(Envelope{
		Scope:          ScopeNotify,
		Target:         "bob",
		ConversationID: "c1",
		Origin:         "some-other-node",
		Event:          event.Make(event.MessageNotification, event.ErrorPayload{}),
	})

	if got := drain(viewing); len(got) != 1 || got[0].Name != event.NewMessage {
		t.Errorf("viewing session events. GOT[%v], EXPECTED[new-message]", names(got))
	}
	if got := drain(idle); len(got) != 1 || got[0].Name != event.MessageNotification {
		t.Errorf("idle session events. GOT[%v], EXPECTED[message-notification]", names(got))
	}
}

// The PUB socket is shared by every connection's read goroutine, so Publish
// must tolerate concurrent callers.
func TestRelayPublishFromConcurrentSenders(t *testing.T) {
	relay, err := NewZMQRelay("127.0.0.1:*", nil, nlog.Discard())
	if err != nil {
		t.Fatalf("could not start the relay: %v", err)
	}
	defer relay.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				env := Envelope{
					Scope:  ScopeConversation,
					Target: "c1",
					Origin: "n1",
					Event:  event.Make(event.NewMessage, event.ErrorPayload{}),
				}
				if err := relay.Publish(env); err != nil {
					t.Errorf("publish failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func names(events []event.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Name)
	}
	return out
}
