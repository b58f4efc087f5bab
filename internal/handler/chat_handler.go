package handler

import (
	"net/http"
	"strconv"

	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/service"

	"github.com/gorilla/mux"
)

type createConvFields struct {
	RecipientID string `json:"recipient-id"`
}

type postMessageFields struct {
	Content     string                    `json:"content"`
	Kind        string                    `json:"kind"`
	Attachments []service.AttachmentInput `json:"attachments"`
}

// ChatHandler is the REST fallback for clients without a live connection. It
// talks to the chat service only, never to the session registry, so messages
// created here reach other users on their next poll rather than live.
type ChatHandler struct {
	chatService service.ChatService
	logger      nlog.Logger
}

func NewChatHandler(chatService service.ChatService, logger nlog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// GetOrCreate handles GET /conversations/{otherUserID}.
func (h *ChatHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	otherUserID := mux.Vars(r)["otherUserID"]

	conv, err := h.chatService.GetOrCreateConversation(user.UUID, otherUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Create handles POST /conversations, the alternate get-or-create entry
// point taking the recipient in the body.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}

	var fields createConvFields
	if err := decodeBody(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}

	conv, err := h.chatService.GetOrCreateConversation(user.UUID, fields.RecipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// List handles GET /conversations, newest activity first.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}

	convs, err := h.chatService.ListConversations(user.UUID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// ListMessages handles GET /conversations/{conversationID}/messages. The
// retrieval marks the other side's messages read, same as the live path.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	convID := mux.Vars(r)["conversationID"]

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.chatService.ListMessages(convID, user.UUID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// PostMessage handles POST /conversations/{conversationID}/messages. No live
// broadcast happens here; that is the accepted latency gap of the fallback.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	convID := mux.Vars(r)["conversationID"]

	var fields postMessageFields
	if err := decodeBody(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}

	msg, err := h.chatService.SendMessage(convID, user.UUID, fields.Content, messageKind(fields.Kind), fields.Attachments)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Logf("message %s created over REST by %s", msg.UUID, user.UUID)
	writeJSON(w, http.StatusCreated, msg)
}
