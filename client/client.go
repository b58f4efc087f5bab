// Package client is a realtime client for the messaging gateway. A Client is
// an explicitly owned connection: create it for the lifetime of a view or
// task and Close it when done. There is deliberately no shared package-level
// connection.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/skygear-market/messaging/internal/event"

	"github.com/gorilla/websocket"
)

type Client struct {
	conn   *websocket.Conn
	events chan event.Event

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects and authenticates against a gateway at baseURL (http or
// https scheme). The returned client is live until Close or a transport
// failure, whichever comes first.
func Dial(ctx context.Context, baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		events: make(chan event.Event, 64),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers everything the server pushes: new messages, notifications,
// typing indicators and error events. The channel closes when the connection
// dies. A consumer that stops draining loses events once the buffer fills;
// the read side never stalls on it.
func (c *Client) Events() <-chan event.Event {
	return c.events
}

func (c *Client) Join(conversationID string) error {
	return c.write(event.Make(event.JoinChat, event.ConversationPayload{ConversationID: conversationID}))
}

func (c *Client) Leave(conversationID string) error {
	return c.write(event.Make(event.LeaveChat, event.ConversationPayload{ConversationID: conversationID}))
}

func (c *Client) Send(conversationID, content, kind string, attachments []event.AttachmentPayload) error {
	return c.write(event.Make(event.SendMessage, event.SendMessagePayload{
		ConversationID: conversationID,
		Content:        content,
		Kind:           kind,
		Attachments:    attachments,
	}))
}

func (c *Client) Typing(conversationID string) error {
	return c.write(event.Make(event.Typing, event.ConversationPayload{ConversationID: conversationID}))
}

func (c *Client) StopTyping(conversationID string) error {
	return c.write(event.Make(event.StopTyping, event.ConversationPayload{ConversationID: conversationID}))
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) write(ev event.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(ev)
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var ev event.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		select {
		case c.events <- ev:
		default:
			// Slow consumer: drop rather than block the read side, which
			// would also keep this goroutine alive past Close.
		}
	}
}
