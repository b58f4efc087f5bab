package entity

import "time"

// A Conversation is the single chat thread between two users. PairKey is the
// sorted participant pair and carries the uniqueness constraint, so two racing
// creates for the same pair cannot both insert.
type Conversation struct {
	UUID          string     `gorm:"primaryKey" json:"id"`
	PairKey       string     `gorm:"uniqueIndex;not null" json:"-"`
	ParticipantA  string     `gorm:"index;not null" json:"-"`
	ParticipantB  string     `gorm:"index;not null" json:"-"`
	LastMessageID *string    `json:"-"`
	LastMessage   *Message   `gorm:"foreignKey:LastMessageID;references:UUID" json:"last-message,omitempty"`
	LastMessageAt time.Time  `gorm:"index" json:"last-message-at"`
	CreatedAt     time.Time  `json:"created-at"`
	UpdatedAt     time.Time  `json:"updated-at"`

	// Filled by the service layer, never persisted.
	Participants []User `gorm:"-" json:"participants,omitempty"`
	UnreadCount  int64  `gorm:"-" json:"unread-count"`
}

// PairKey normalizes a participant pair into the conversation lookup key,
// independent of call order.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

func (c *Conversation) HasParticipant(userUUID string) bool {
	return c.ParticipantA == userUUID || c.ParticipantB == userUUID
}

// OtherParticipant returns the participant that is not the given user. The
// caller is expected to have checked membership first.
func (c *Conversation) OtherParticipant(userUUID string) string {
	if c.ParticipantA == userUUID {
		return c.ParticipantB
	}
	return c.ParticipantA
}
