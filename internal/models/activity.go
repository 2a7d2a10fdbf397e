package models

import (
	"time"

	"gorm.io/gorm"
)

// Activity kinds share the activities table
const (
	ActivityPost  = "post"
	ActivityEvent = "event"
	ActivityPoll  = "poll"
	ActivityPhoto = "photo"
)

// ActivityKinds lists every kind stored in the activities table
var ActivityKinds = []string{ActivityPost, ActivityEvent, ActivityPoll, ActivityPhoto}

// IsActivityKind reports whether kind is stored in the activities table
func IsActivityKind(kind string) bool {
	for _, k := range ActivityKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Activity is a post, event, poll or photo submitted to a community
type Activity struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind        string `gorm:"size:10;not null;index" json:"kind"`
	OwnerID     string `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	CommunityID string `gorm:"type:varchar(36);not null;index" json:"community_id"`
	EditorID    string `gorm:"type:varchar(36)" json:"editor_id,omitempty"`

	Title       string `gorm:"size:300" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	URL         string `gorm:"size:500" json:"url,omitempty"`
	Image       string `gorm:"size:500" json:"image,omitempty"`

	// Event fields
	Location string     `gorm:"size:300" json:"location,omitempty"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	Canceled *time.Time `json:"canceled,omitempty"`

	ReshareOfID *string `gorm:"type:varchar(36);index" json:"reshare_of_id,omitempty"`

	// DeletedAt marks a soft delete by a moderator. It is a plain column so
	// loaders decide for themselves whether deleted rows are visible.
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// Text returns the content scanned for mentions and hashtags
func (a *Activity) Text() string {
	if a.Description == "" {
		return a.Title
	}
	return a.Title + " " + a.Description
}

// IsDeleted reports whether the activity was soft-deleted
func (a *Activity) IsDeleted() bool {
	return a.DeletedAt != nil
}

// PollAnswer is an option on a poll activity
type PollAnswer struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PollID      string    `gorm:"type:varchar(36);not null;index" json:"poll_id"`
	Description string    `gorm:"size:100;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// PollVote records one user's answer. A user may vote once per poll.
type PollVote struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PollID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_poll_vote_unique" json:"poll_id"`
	AnswerID  string    `gorm:"type:varchar(36);not null;index" json:"answer_id"`
	VoterID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_poll_vote_unique" json:"voter_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EventAttendee marks a user as attending an event
type EventAttendee struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_event_attendee_unique" json:"event_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_event_attendee_unique" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}

func (p *PollAnswer) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (v *PollVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}

func (e *EventAttendee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}
