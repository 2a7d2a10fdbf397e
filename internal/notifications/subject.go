package notifications

import (
	"fmt"

	"github.com/Butonix/localhub/internal/models"
)

// SubjectKind identifies the type of entity a notification points at
type SubjectKind string

const (
	KindPost    SubjectKind = SubjectKind(models.ActivityPost)
	KindEvent   SubjectKind = SubjectKind(models.ActivityEvent)
	KindPoll    SubjectKind = SubjectKind(models.ActivityPoll)
	KindPhoto   SubjectKind = SubjectKind(models.ActivityPhoto)
	KindComment SubjectKind = "comment"
	KindMessage SubjectKind = "message"
	KindUser    SubjectKind = "user"
)

// IsActivity reports whether the kind lives in the activities table
func (k SubjectKind) IsActivity() bool {
	return models.IsActivityKind(string(k))
}

// SubjectRef is a typed polymorphic reference to a subject
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r SubjectRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// RefOf returns the reference stored on a notification row
func RefOf(n *models.Notification) SubjectRef {
	return SubjectRef{Kind: SubjectKind(n.SubjectKind), ID: n.SubjectID}
}

// Subject is any entity that can trigger notifications
type Subject interface {
	Ref() SubjectRef
	OwnerID() string
	CommunityID() string
	// Text is scanned for @mentions and #hashtags
	Text() string
	// Title is the human label used in notification bodies
	Title() string
	// Path is the site-relative URL of the subject
	Path() string
}

// ActivitySubject wraps a post, event, poll or photo
type ActivitySubject struct {
	Activity *models.Activity
}

// FromActivity wraps an activity as a subject
func FromActivity(a *models.Activity) *ActivitySubject {
	return &ActivitySubject{Activity: a}
}

func (s *ActivitySubject) Ref() SubjectRef {
	return SubjectRef{Kind: SubjectKind(s.Activity.Kind), ID: s.Activity.ID}
}
func (s *ActivitySubject) OwnerID() string     { return s.Activity.OwnerID }
func (s *ActivitySubject) CommunityID() string { return s.Activity.CommunityID }
func (s *ActivitySubject) Text() string        { return s.Activity.Text() }
func (s *ActivitySubject) Title() string       { return s.Activity.Title }
func (s *ActivitySubject) Path() string        { return "/activities/" + s.Activity.ID }

// CommentSubject wraps a comment together with the activity it belongs to
// and the comment it replies to, if any.
type CommentSubject struct {
	Comment  *models.Comment
	Activity *models.Activity
	Parent   *models.Comment
}

// FromComment wraps a comment as a subject. activity must not be nil; parent may be.
func FromComment(c *models.Comment, activity *models.Activity, parent *models.Comment) *CommentSubject {
	return &CommentSubject{Comment: c, Activity: activity, Parent: parent}
}

func (s *CommentSubject) Ref() SubjectRef     { return SubjectRef{Kind: KindComment, ID: s.Comment.ID} }
func (s *CommentSubject) OwnerID() string     { return s.Comment.OwnerID }
func (s *CommentSubject) CommunityID() string { return s.Comment.CommunityID }
func (s *CommentSubject) Text() string        { return s.Comment.Content }
func (s *CommentSubject) Title() string       { return s.Comment.Content }
func (s *CommentSubject) Path() string {
	return fmt.Sprintf("/activities/%s#comment-%s", s.Comment.ActivityID, s.Comment.ID)
}

// MessageSubject wraps a private message
type MessageSubject struct {
	Message *models.Message
}

// FromMessage wraps a private message as a subject
func FromMessage(m *models.Message) *MessageSubject {
	return &MessageSubject{Message: m}
}

func (s *MessageSubject) Ref() SubjectRef     { return SubjectRef{Kind: KindMessage, ID: s.Message.ID} }
func (s *MessageSubject) OwnerID() string     { return s.Message.SenderID }
func (s *MessageSubject) CommunityID() string { return s.Message.CommunityID }
func (s *MessageSubject) Text() string        { return s.Message.Message }
func (s *MessageSubject) Title() string       { return s.Message.Message }
func (s *MessageSubject) Path() string        { return "/messages/" + s.Message.ID }

// UserSubject wraps a user account. Users belong to no community, so the
// community the event happened in is carried alongside.
type UserSubject struct {
	User      *models.User
	Community string
}

// FromUser wraps a user as a subject in the given community
func FromUser(u *models.User, communityID string) *UserSubject {
	return &UserSubject{User: u, Community: communityID}
}

func (s *UserSubject) Ref() SubjectRef     { return SubjectRef{Kind: KindUser, ID: s.User.ID} }
func (s *UserSubject) OwnerID() string     { return s.User.ID }
func (s *UserSubject) CommunityID() string { return s.Community }
func (s *UserSubject) Text() string        { return "" }
func (s *UserSubject) Title() string       { return s.User.DisplayName() }
func (s *UserSubject) Path() string        { return "/users/" + s.User.Username }
