package models

import (
	"time"

	"gorm.io/gorm"
)

// Like is a user liking an activity or comment
type Like struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_like_unique" json:"user_id"`
	RecipientID string    `gorm:"type:varchar(36);not null;index" json:"recipient_id"`
	CommunityID string    `gorm:"type:varchar(36);not null;index" json:"community_id"`
	SubjectKind string    `gorm:"size:20;not null;uniqueIndex:idx_like_unique" json:"subject_kind"`
	SubjectID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_like_unique" json:"subject_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Flag reasons
const (
	FlagSpam     = "spam"
	FlagAbuse    = "abuse"
	FlagRules    = "rules"
	FlagIllegal  = "illegal"
	FlagPersonal = "personal"
)

// Flag is a user reporting an activity or comment to the moderators
type Flag struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_flag_unique" json:"user_id"`
	CommunityID string    `gorm:"type:varchar(36);not null;index" json:"community_id"`
	SubjectKind string    `gorm:"size:20;not null;uniqueIndex:idx_flag_unique" json:"subject_kind"`
	SubjectID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_flag_unique" json:"subject_id"`
	Reason      string    `gorm:"size:30;not null;default:spam" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// Follow is a user following another user
type Follow struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FollowerID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_unique" json:"follower_id"`
	FollowingID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_unique;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TagFollow is a user following a hashtag inside one community
type TagFollow struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_tag_follow_unique" json:"user_id"`
	CommunityID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_tag_follow_unique" json:"community_id"`
	Tag         string    `gorm:"size:100;not null;uniqueIndex:idx_tag_follow_unique;index" json:"tag"`
	CreatedAt   time.Time `json:"created_at"`
}

// Block hides the blocked user's activity from the blocker
type Block struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BlockerID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_block_unique" json:"blocker_id"`
	BlockedID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_block_unique" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (f *Flag) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	if f.Reason == "" {
		f.Reason = FlagSpam
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (t *TagFollow) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	return nil
}

func (b *Block) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}
