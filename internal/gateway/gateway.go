package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/skygear-market/messaging/internal/event"
	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/registry"
	"github.com/skygear-market/messaging/internal/service"

	"github.com/gorilla/websocket"
)

// Gateway bridges websocket connections to the chat service and the session
// registry. A connection moves through connecting -> authenticating ->
// active -> closed; event handlers only ever see active sessions, because a
// failed handshake never reaches Register.
type Gateway struct {
	chats      service.ChatService
	auth       service.AuthService
	registry   *registry.Registry
	dispatcher *registry.Dispatcher
	logger     nlog.Logger
	upgrader   websocket.Upgrader
}

func New(
	chats service.ChatService,
	auth service.AuthService,
	reg *registry.Registry,
	dispatcher *registry.Dispatcher,
	allowedOrigin string,
	logger nlog.Logger,
) *Gateway {
	return &Gateway{
		chats:      chats,
		auth:       auth,
		registry:   reg,
		dispatcher: dispatcher,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowedOrigin == "*" {
					return true
				}
				return origin == allowedOrigin
			},
		},
	}
}

func (g *Gateway) Logf(format string, v ...any) {
	g.logger.Logf(format, v...)
}

// Handle is the websocket endpoint. Browsers cannot set an Authorization
// header on the websocket handshake, so the bearer token travels as a query
// parameter.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := g.auth.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	sess := registry.NewSession(user.UUID)
	g.registry.Register(sess)
	g.Logf("user %s connected (session %s)", user.UUID, sess.ID)

	go g.writePump(conn, sess)
	g.readPump(conn, sess)
}

// dispatch routes one inbound event. Store errors become an error event on
// the originating session only; nothing short of a transport failure closes
// the connection.
func (g *Gateway) dispatch(sess *registry.Session, ev event.Event) {
	switch ev.Name {
	case event.JoinChat:
		g.handleJoin(sess, ev.Data)
	case event.LeaveChat:
		g.handleLeave(sess, ev.Data)
	case event.SendMessage:
		g.handleSend(sess, ev.Data)
	case event.Typing:
		g.handleTyping(sess, ev.Data, event.UserTyping)
	case event.StopTyping:
		g.handleTyping(sess, ev.Data, event.UserStopTyping)
	default:
		g.sendErrorMessage(sess, "unknown event "+ev.Name)
	}
}

func (g *Gateway) handleJoin(sess *registry.Session, data json.RawMessage) {
	var payload event.ConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendErrorMessage(sess, "malformed join payload")
		return
	}

	conv, err := g.chats.Conversation(payload.ConversationID)
	if err != nil {
		g.sendError(sess, err)
		return
	}
	if !conv.HasParticipant(sess.UserID) {
		g.sendErrorMessage(sess, "access denied")
		return
	}

	g.registry.Subscribe(sess, conv.UUID)
	g.Logf("user %s joined conversation %s", sess.UserID, conv.UUID)
}

func (g *Gateway) handleLeave(sess *registry.Session, data json.RawMessage) {
	var payload event.ConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendErrorMessage(sess, "malformed leave payload")
		return
	}
	g.registry.Unsubscribe(sess, payload.ConversationID)
}

func (g *Gateway) handleSend(sess *registry.Session, data json.RawMessage) {
	var payload event.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendErrorMessage(sess, "malformed message payload")
		return
	}

	attachments := make([]service.AttachmentInput, 0, len(payload.Attachments))
	for _, a := range payload.Attachments {
		attachments = append(attachments, service.AttachmentInput{URL: a.URL, Kind: a.Kind, Name: a.Name})
	}

	msg, err := g.chats.SendMessage(
		payload.ConversationID,
		sess.UserID,
		payload.Content,
		entityKind(payload.Kind),
		attachments,
	)
	if err != nil {
		g.sendError(sess, err)
		return
	}

	// Everyone viewing the conversation gets the full message, the sender's
	// own other sessions included, so multiple devices stay consistent.
	g.dispatcher.ToConversation(msg.ConversationUUID, event.Make(event.NewMessage, msg), nil)

	conv, err := g.chats.Conversation(msg.ConversationUUID)
	if err != nil {
		g.sendError(sess, err)
		return
	}
	recipient := conv.OtherParticipant(sess.UserID)
	g.dispatcher.NotifyUser(recipient, conv.UUID, event.Make(event.MessageNotification, event.NotificationPayload{
		ConversationID: conv.UUID,
		Message:        msg,
		Sender:         msg.Sender,
	}))
}

func (g *Gateway) handleTyping(sess *registry.Session, data json.RawMessage, outbound string) {
	var payload event.ConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendErrorMessage(sess, "malformed typing payload")
		return
	}

	// Ephemeral, best-effort, never persisted. The originating session is
	// excluded; only subscribed sessions can receive it anyway.
	g.dispatcher.ToConversation(payload.ConversationID, event.Make(outbound, event.TypingPayload{
		UserID:         sess.UserID,
		ConversationID: payload.ConversationID,
	}), sess)
}

func (g *Gateway) sendError(sess *registry.Session, err error) {
	g.sendErrorMessage(sess, err.Error())
}

func (g *Gateway) sendErrorMessage(sess *registry.Session, msg string) {
	sess.Enqueue(event.Make(event.Error, event.ErrorPayload{Message: msg}))
}
