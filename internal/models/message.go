package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is a private message between two members of a community
type Message struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	SenderID    string     `gorm:"type:varchar(36);not null;index" json:"sender_id"`
	RecipientID string     `gorm:"type:varchar(36);not null;index" json:"recipient_id"`
	CommunityID string     `gorm:"type:varchar(36);not null;index" json:"community_id"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
