package models

import (
	"time"

	"gorm.io/gorm"
)

// Community is a tenant. Requests are routed to a community by the Host header.
type Community struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Domain    string    `gorm:"uniqueIndex;not null;size:100" json:"domain"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership roles
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Membership ties a user to a community with a role
type Membership struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CommunityID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_membership_unique" json:"community_id"`
	MemberID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_membership_unique;index" json:"member_id"`
	Role        string    `gorm:"size:20;not null;default:member" json:"role"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Member *User `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

// IsModerator reports whether the membership grants moderation rights
func (m *Membership) IsModerator() bool {
	return m.Active && (m.Role == RoleModerator || m.Role == RoleAdmin)
}

func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	if m.Role == "" {
		m.Role = RoleMember
	}
	return nil
}
