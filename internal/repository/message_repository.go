package repository

import (
	"time"

	"github.com/skygear-market/messaging/internal/entity"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(message *entity.Message) error

	// ListPage returns messages newest-first; page starts at 1.
	ListPage(convUUID string, page, limit int) ([]*entity.Message, error)

	// MarkRead flips every unread message in the conversation that was not
	// sent by the reader, returning how many rows changed.
	MarkRead(convUUID, readerUUID string, at time.Time) (int64, error)

	CountUnread(convUUID, userUUID string) (int64, error)
}

type SQLiteMessageRepository struct {
	db *gorm.DB
}

func NewSQLiteMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLiteMessageRepository{db}
}

func (repo *SQLiteMessageRepository) Create(message *entity.Message) error {
	return repo.db.Create(message).Error
}

func (repo *SQLiteMessageRepository) ListPage(convUUID string, page, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.db.
		Where("conversation_uuid = ?", convUUID).
		// rowid breaks creation-time ties in insertion order.
		Order("created_at DESC, rowid DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Preload("Sender").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Find(&messages).Error
	return messages, err
}

func (repo *SQLiteMessageRepository) MarkRead(convUUID, readerUUID string, at time.Time) (int64, error) {
	result := repo.db.Model(&entity.Message{}).
		Where("conversation_uuid = ? AND sender_uuid <> ? AND read = ?", convUUID, readerUUID, false).
		Updates(map[string]any{"read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (repo *SQLiteMessageRepository) CountUnread(convUUID, userUUID string) (int64, error) {
	var count int64
	err := repo.db.Model(&entity.Message{}).
		Where("conversation_uuid = ? AND sender_uuid <> ? AND read = ?", convUUID, userUUID, false).
		Count(&count).Error
	return count, err
}
