package database

import (
	"github.com/skygear-market/messaging/internal/entity"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.UserSecret{},
		&entity.Conversation{},
		&entity.Message{},
		&entity.Attachment{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
