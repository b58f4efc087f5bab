package entity

import "time"

type User struct {
	UUID      string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"not null;default:buyer" json:"role"`
	FirstName string    `json:"first-name"`
	LastName  string    `json:"last-name"`
	AvatarURL string    `json:"avatar,omitempty"`
	CreatedAt time.Time `gorm:"not null;index" json:"created-at"`

	Secret UserSecret `gorm:"foreignKey:UserUUID;references:UUID" json:"-"`
}

type UserSecret struct {
	UserUUID string `gorm:"primaryKey"`
	Hash     string `gorm:"not null"`
}
