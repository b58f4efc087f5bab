package gateway

import (
	"time"

	"github.com/skygear-market/messaging/internal/entity"
	"github.com/skygear-market/messaging/internal/event"
	"github.com/skygear-market/messaging/internal/registry"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Attachments arrive inline (data URLs), so the frame limit is generous.
	maxMessageSize = 1 << 20
)

// readPump owns the connection's read side. It exits on any transport error,
// tearing the session down; application errors never end up here.
func (g *Gateway) readPump(conn *websocket.Conn, sess *registry.Session) {
	defer func() {
		g.registry.Unregister(sess)
		sess.Close()
		conn.Close()
		g.Logf("user %s disconnected (session %s)", sess.UserID, sess.ID)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev event.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.Logf("session %s read error: %v", sess.ID, err)
			}
			return
		}
		g.dispatch(sess, ev)
	}
}

// writePump drains the session outbox onto the wire and keeps the connection
// alive with pings. A write failure closes the connection, which unblocks the
// read side and lets it unregister.
func (g *Gateway) writePump(conn *websocket.Conn, sess *registry.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-sess.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev := <-sess.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func entityKind(kind string) entity.MessageKind {
	if kind == "" {
		return entity.KindText
	}
	return entity.MessageKind(kind)
}
