package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification tells a recipient that an actor did something (verb) to a
// subject. The subject is a polymorphic reference: kind + id.
type Notification struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ActorID     string    `gorm:"type:varchar(36);not null;index" json:"actor_id"`
	RecipientID string    `gorm:"type:varchar(36);not null;index:idx_notifications_recipient_read,priority:1" json:"recipient_id"`
	CommunityID string    `gorm:"type:varchar(36);not null;index" json:"community_id"`
	SubjectKind string    `gorm:"size:20;not null;index:idx_notifications_subject,priority:1" json:"subject_kind"`
	SubjectID   string    `gorm:"type:varchar(36);not null;index:idx_notifications_subject,priority:2" json:"subject_id"`
	Verb        string    `gorm:"size:30;not null" json:"verb"`
	IsRead      bool      `gorm:"not null;index:idx_notifications_recipient_read,priority:2" json:"is_read"`
	CreatedAt   time.Time `gorm:"index:idx_notifications_subject,priority:3" json:"created_at"`

	Actor     *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Recipient *User      `gorm:"foreignKey:RecipientID" json:"-"`
	Community *Community `gorm:"foreignKey:CommunityID" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}

// PushSubscription is a browser web-push endpoint registered by a user in a community
type PushSubscription struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_push_subscription_unique,priority:1" json:"user_id"`
	CommunityID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_push_subscription_unique,priority:4" json:"community_id"`
	Endpoint    string    `gorm:"type:text;not null" json:"endpoint"`
	Auth        string    `gorm:"size:255;not null;uniqueIndex:idx_push_subscription_unique,priority:2" json:"auth"`
	P256dh      string    `gorm:"size:255;not null;uniqueIndex:idx_push_subscription_unique,priority:3" json:"p256dh"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
