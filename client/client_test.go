package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skygear-market/messaging/internal/event"

	"github.com/gorilla/websocket"
)

// A consumer that never drains must not wedge the read loop: the events
// channel still closes when the connection dies, and the overflow is dropped
// instead of being delivered late.
func TestSlowConsumerDoesNotStallTheReadLoop(t *testing.T) {
	const flood = 500

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < flood; i++ {
			if err := conn.WriteJSON(event.Make(event.NewMessage, event.ErrorPayload{Message: "m"})); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), srv.URL, "token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer c.Close()

	// Let the flood and the server-side close finish while nothing drains.
	time.Sleep(300 * time.Millisecond)

	received := 0
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-c.Events():
			if !ok {
				if received >= flood {
					t.Errorf("every event was delivered; a lagging consumer should lose the overflow")
				}
				return
			}
			received++
		case <-deadline:
			t.Fatal("events channel never closed; the read loop is stalled")
		}
	}
}
