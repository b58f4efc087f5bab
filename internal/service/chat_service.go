package service

import (
	"errors"
	"strings"
	"time"

	"github.com/skygear-market/messaging/internal/apperr"
	"github.com/skygear-market/messaging/internal/entity"
	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type AttachmentInput struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// ChatService owns the conversation and message lifecycle: the unique
// two-party conversation per participant pair, message ordering, and the
// read-on-retrieval receipt semantics.
type ChatService interface {
	Conversation(convUUID string) (*entity.Conversation, error)
	GetOrCreateConversation(userUUID, otherUUID string) (*entity.Conversation, error)
	ListConversations(userUUID string) ([]*entity.Conversation, error)
	SendMessage(convUUID, senderUUID, content string, kind entity.MessageKind, attachments []AttachmentInput) (*entity.Message, error)
	ListMessages(convUUID, requesterUUID string, page, limit int) ([]*entity.Message, error)
}

type localChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	logger        nlog.Logger
}

func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	logger nlog.Logger,
) ChatService {
	return &localChatService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		logger:        logger,
	}
}

func (s *localChatService) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

// Conversation fetches a conversation without enrichment. The gateway uses it
// for membership checks on join and to resolve the notification recipient.
func (s *localChatService) Conversation(convUUID string) (*entity.Conversation, error) {
	conv, err := s.conversations.GetByUUID(convUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("conversation %s", convUUID)
		}
		return nil, apperr.Persistence(err)
	}
	return conv, nil
}

func (s *localChatService) GetOrCreateConversation(userUUID, otherUUID string) (*entity.Conversation, error) {
	if userUUID == otherUUID {
		return nil, apperr.Invalidf("cannot chat with yourself")
	}

	me, err := s.users.GetByUUID(userUUID)
	if err != nil {
		return nil, userLookupError(userUUID, err)
	}
	other, err := s.users.GetByUUID(otherUUID)
	if err != nil {
		return nil, userLookupError(otherUUID, err)
	}

	key := entity.PairKey(userUUID, otherUUID)

	conv, err := s.conversations.GetByPairKey(key)
	if err == nil {
		return s.enrich(conv, me, other)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Persistence(err)
	}

	conv = &entity.Conversation{
		UUID:          uuid.New().String(),
		PairKey:       key,
		ParticipantA:  userUUID,
		ParticipantB:  otherUUID,
		LastMessageAt: time.Now(),
	}
	if err := s.conversations.Create(conv); err != nil {
		// Lost the race against a concurrent create for the same pair:
		// the unique index rejected us, so the winner must exist.
		winner, fetchErr := s.conversations.GetByPairKey(key)
		if fetchErr != nil {
			return nil, apperr.Persistence(err)
		}
		s.Logf("conversation create for %s lost race, returning winner %s", key, winner.UUID)
		conv = winner
	}

	return s.enrich(conv, me, other)
}

func (s *localChatService) ListConversations(userUUID string) ([]*entity.Conversation, error) {
	me, err := s.users.GetByUUID(userUUID)
	if err != nil {
		return nil, userLookupError(userUUID, err)
	}

	convs, err := s.conversations.ListForUser(userUUID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	for _, conv := range convs {
		other, err := s.users.GetByUUID(conv.OtherParticipant(userUUID))
		if err != nil {
			return nil, userLookupError(conv.OtherParticipant(userUUID), err)
		}
		if _, err := s.enrich(conv, me, other); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (s *localChatService) SendMessage(convUUID, senderUUID, content string, kind entity.MessageKind, attachments []AttachmentInput) (*entity.Message, error) {
	conv, err := s.conversations.GetByUUID(convUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("conversation %s", convUUID)
		}
		return nil, apperr.Persistence(err)
	}
	if !conv.HasParticipant(senderUUID) {
		return nil, apperr.Forbiddenf("user %s is not a participant of conversation %s", senderUUID, convUUID)
	}

	if kind == "" {
		kind = entity.KindText
	}
	if !kind.Valid() {
		return nil, apperr.Invalidf("unknown message kind %q", kind)
	}
	content = strings.TrimSpace(content)
	if kind == entity.KindText && content == "" {
		return nil, apperr.Invalidf("message content is empty")
	}

	msg := &entity.Message{
		UUID:             uuid.New().String(),
		ConversationUUID: convUUID,
		SenderUUID:       senderUUID,
		Content:          content,
		Kind:             kind,
		CreatedAt:        time.Now(),
	}
	for i, a := range attachments {
		msg.Attachments = append(msg.Attachments, entity.Attachment{
			MessageUUID: msg.UUID,
			Position:    i,
			URL:         a.URL,
			Kind:        a.Kind,
			Name:        a.Name,
		})
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, apperr.Persistence(err)
	}
	if err := s.conversations.SetLastMessage(convUUID, msg.UUID, msg.CreatedAt); err != nil {
		return nil, apperr.Persistence(err)
	}

	sender, err := s.users.GetByUUID(senderUUID)
	if err != nil {
		return nil, userLookupError(senderUUID, err)
	}
	msg.Sender = sender

	s.Logf("message %s appended to conversation %s", msg.UUID, convUUID)
	return msg, nil
}

func (s *localChatService) ListMessages(convUUID, requesterUUID string, page, limit int) ([]*entity.Message, error) {
	conv, err := s.conversations.GetByUUID(convUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("conversation %s", convUUID)
		}
		return nil, apperr.Persistence(err)
	}
	if !conv.HasParticipant(requesterUUID) {
		return nil, apperr.Forbiddenf("user %s is not a participant of conversation %s", requesterUUID, convUUID)
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	messages, err := s.messages.ListPage(convUUID, page, limit)
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	// Retrieval is the read receipt: everything the other side sent is now
	// considered read, regardless of which page was fetched.
	if _, err := s.messages.MarkRead(convUUID, requesterUUID, time.Now()); err != nil {
		return nil, apperr.Persistence(err)
	}

	// Fetched newest-first for pagination, shown oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *localChatService) enrich(conv *entity.Conversation, me, other *entity.User) (*entity.Conversation, error) {
	unread, err := s.messages.CountUnread(conv.UUID, me.UUID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	conv.UnreadCount = unread
	conv.Participants = []entity.User{*me, *other}
	return conv, nil
}

func userLookupError(userUUID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("user %s", userUUID)
	}
	return apperr.Persistence(err)
}
