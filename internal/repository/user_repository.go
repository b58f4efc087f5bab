package repository

import (
	"github.com/skygear-market/messaging/internal/entity"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *entity.User) error

	GetByUUID(uuid string) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetForLogin(email string) (*entity.User, error)
}

type SQLiteUserRepository struct {
	db *gorm.DB
}

func NewSQLiteUserRepository(db *gorm.DB) UserRepository {
	return &SQLiteUserRepository{db}
}

func (repo *SQLiteUserRepository) Create(user *entity.User) error {
	return repo.db.Create(user).Error
}

func (repo *SQLiteUserRepository) GetByUUID(uuid string) (*entity.User, error) {
	var user entity.User
	err := repo.db.Where("uuid = ?", uuid).First(&user).Error
	return &user, err
}

func (repo *SQLiteUserRepository) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := repo.db.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (repo *SQLiteUserRepository) GetForLogin(email string) (*entity.User, error) {
	var user entity.User
	err := repo.db.Preload("Secret").Where("email = ?", email).First(&user).Error
	return &user, err
}
