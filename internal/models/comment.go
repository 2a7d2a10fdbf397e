package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a comment on an activity, optionally replying to another comment
type Comment struct {
	ID          string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID     string  `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	CommunityID string  `gorm:"type:varchar(36);not null;index" json:"community_id"`
	ActivityID  string  `gorm:"type:varchar(36);not null;index" json:"activity_id"`
	ParentID    *string `gorm:"type:varchar(36);index" json:"parent_id,omitempty"`
	EditorID    string  `gorm:"type:varchar(36)" json:"editor_id,omitempty"`
	Content     string  `gorm:"type:text;not null" json:"content"`

	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Owner    *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Activity *Activity `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	Parent   *Comment  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

// Abbreviate shortens the content to at most length runes, ending in an ellipsis
func (c *Comment) Abbreviate(length int) string {
	return Truncate(c.Content, length)
}

// IsDeleted reports whether the comment was soft-deleted
func (c *Comment) IsDeleted() bool {
	return c.DeletedAt != nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// Truncate cuts s to at most length runes, replacing the tail with "…"
func Truncate(s string, length int) string {
	runes := []rune(s)
	if length <= 0 || len(runes) <= length {
		return s
	}
	if length == 1 {
		return "…"
	}
	return string(runes[:length-1]) + "…"
}
