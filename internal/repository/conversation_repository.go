package repository

import (
	"time"

	"github.com/skygear-market/messaging/internal/entity"

	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(conv *entity.Conversation) error

	GetByUUID(uuid string) (*entity.Conversation, error)
	GetByPairKey(pairKey string) (*entity.Conversation, error)
	ListForUser(userUUID string) ([]*entity.Conversation, error)

	SetLastMessage(convUUID, messageUUID string, at time.Time) error
}

type SQLiteConversationRepository struct {
	db *gorm.DB
}

func NewSQLiteConversationRepository(db *gorm.DB) ConversationRepository {
	return &SQLiteConversationRepository{db}
}

func (repo *SQLiteConversationRepository) Create(conv *entity.Conversation) error {
	return repo.db.Create(conv).Error
}

func (repo *SQLiteConversationRepository) GetByUUID(uuid string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := repo.db.Where("uuid = ?", uuid).First(&conv).Error
	return &conv, err
}

func (repo *SQLiteConversationRepository) GetByPairKey(pairKey string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := repo.db.Where("pair_key = ?", pairKey).First(&conv).Error
	return &conv, err
}

func (repo *SQLiteConversationRepository) ListForUser(userUUID string) ([]*entity.Conversation, error) {
	var convs []*entity.Conversation
	err := repo.db.
		Where("participant_a = ? OR participant_b = ?", userUUID, userUUID).
		Order("last_message_at DESC").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Find(&convs).Error
	return convs, err
}

func (repo *SQLiteConversationRepository) SetLastMessage(convUUID, messageUUID string, at time.Time) error {
	return repo.db.Model(&entity.Conversation{}).
		Where("uuid = ?", convUUID).
		Updates(map[string]any{"last_message_id": messageUUID, "last_message_at": at}).Error
}
