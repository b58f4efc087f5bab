package entity

import "time"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

type Attachment struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	MessageUUID string `gorm:"index;not null" json:"-"`
	Position    int    `gorm:"not null" json:"-"`
	URL         string `gorm:"not null" json:"url"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
}

// A Message is immutable after creation except for the read transition, which
// happens when the other participant retrieves history.
type Message struct {
	UUID             string       `gorm:"primaryKey" json:"id"`
	ConversationUUID string       `gorm:"index;not null" json:"conversation-id"`
	SenderUUID       string       `gorm:"index;not null" json:"sender-id"`
	Sender           *User        `gorm:"foreignKey:SenderUUID;references:UUID" json:"sender,omitempty"`
	Content          string       `gorm:"not null" json:"content"`
	Kind             MessageKind  `gorm:"not null;default:text" json:"kind"`
	Attachments      []Attachment `gorm:"foreignKey:MessageUUID;references:UUID" json:"attachments,omitempty"`
	Read             bool         `gorm:"not null;default:false;index" json:"read"`
	ReadAt           *time.Time   `json:"read-at,omitempty"`
	CreatedAt        time.Time    `gorm:"not null;index" json:"created-at"`
}
