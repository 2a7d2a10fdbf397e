package notifications

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Butonix/localhub/internal/models"
)

// Verbs
const (
	VerbMention         = "mention"
	VerbCreated         = "created"
	VerbUpdated         = "updated"
	VerbModeratorReview = "moderator_review"
	VerbEdit            = "edit"
	VerbDelete          = "delete"
	VerbFlag            = "flag"
	VerbLike            = "like"
	VerbReshare         = "reshare"
	VerbFollowedUser    = "followed_user"
	VerbFollowedTag     = "followed_tag"
	VerbAttend          = "attend"
	VerbCancel          = "cancel"
	VerbVote            = "vote"
	VerbNewComment      = "new_comment"
	VerbReply           = "reply"
	VerbNewSibling      = "new_sibling"
	VerbNewMessage      = "new_message"
	VerbNewFollower     = "new_follower"
	VerbNewMember       = "new_member"
)

// KindSpec describes how notifications about one subject kind look
type KindSpec struct {
	// ObjectName is substituted for {object} in headers
	ObjectName string
	// Verbs is the ordered vocabulary allowed for this kind
	Verbs []string
	// Headers maps verb to a header template with {actor} and {object} placeholders
	Headers map[string]string
	// Body renders the short body shown under the header
	Body func(Subject) string
}

// Registry is the static subject-kind table consulted when notifications
// are created and rendered
type Registry struct {
	mu    sync.RWMutex
	kinds map[SubjectKind]*KindSpec
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[SubjectKind]*KindSpec)}
}

// Register adds or replaces the KindSpec for a kind
func (r *Registry) Register(kind SubjectKind, spec *KindSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = spec
}

// Spec returns the KindSpec registered for a kind
func (r *Registry) Spec(kind SubjectKind) (*KindSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.kinds[kind]
	return spec, ok
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []SubjectKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]SubjectKind, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Allows reports whether verb belongs to the vocabulary of kind
func (r *Registry) Allows(kind SubjectKind, verb string) bool {
	spec, ok := r.Spec(kind)
	if !ok {
		return false
	}
	for _, v := range spec.Verbs {
		if v == verb {
			return true
		}
	}
	return false
}

// AllVerbs returns every registered verb, deduplicated and sorted
func (r *Registry) AllVerbs() []string {
	seen := make(map[string]bool)
	var verbs []string
	for _, kind := range r.Kinds() {
		spec, _ := r.Spec(kind)
		for _, v := range spec.Verbs {
			if !seen[v] {
				seen[v] = true
				verbs = append(verbs, v)
			}
		}
	}
	sort.Strings(verbs)
	return verbs
}

// Header renders the notification header for a verb on a kind
func (r *Registry) Header(kind SubjectKind, verb, actorName string) string {
	spec, ok := r.Spec(kind)
	if !ok {
		return fmt.Sprintf("%s: %s", actorName, verb)
	}
	tmpl, ok := spec.Headers[verb]
	if !ok {
		return fmt.Sprintf("%s: %s", actorName, verb)
	}
	return strings.NewReplacer("{actor}", actorName, "{object}", spec.ObjectName).Replace(tmpl)
}

// Body renders the notification body for a subject
func (r *Registry) Body(subject Subject) string {
	spec, ok := r.Spec(subject.Ref().Kind)
	if !ok || spec.Body == nil {
		return ""
	}
	return spec.Body(subject)
}

var activityHeaders = map[string]string{
	VerbCreated:         "{actor} has submitted a new {object}",
	VerbUpdated:         "{actor} has updated their {object}",
	VerbDelete:          "{actor} has deleted your {object}",
	VerbEdit:            "{actor} has edited your {object}",
	VerbFlag:            "{actor} has flagged this {object}",
	VerbLike:            "{actor} has liked your {object}",
	VerbMention:         "{actor} has mentioned you in their {object}",
	VerbModeratorReview: "{actor} has submitted or updated their {object} for review",
	VerbFollowedUser:    "{actor} has submitted a new {object}",
	VerbFollowedTag:     "Someone has submitted or updated a new {object} containing tags you are following",
	VerbReshare:         "{actor} has reshared your {object}",
	VerbAttend:          "{actor} is attending your {object}",
	VerbCancel:          "{actor} has canceled this {object}",
	VerbVote:            "{actor} has voted in your {object}",
}

var activityVerbs = []string{
	VerbMention,
	VerbCreated,
	VerbUpdated,
	VerbModeratorReview,
	VerbEdit,
	VerbDelete,
	VerbFlag,
	VerbLike,
	VerbReshare,
	VerbFollowedUser,
	VerbFollowedTag,
}

func activitySpec(objectName string, extraVerbs ...string) *KindSpec {
	verbs := append(append([]string{}, activityVerbs...), extraVerbs...)
	headers := make(map[string]string, len(verbs))
	for _, v := range verbs {
		headers[v] = activityHeaders[v]
	}
	return &KindSpec{
		ObjectName: objectName,
		Verbs:      verbs,
		Headers:    headers,
		Body: func(s Subject) string {
			return models.Truncate(s.Title(), 60)
		},
	}
}

// DefaultRegistry builds the registry for every subject kind the site knows
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(KindPost, activitySpec("post"))
	r.Register(KindPhoto, activitySpec("photo"))
	r.Register(KindEvent, activitySpec("event", VerbAttend, VerbCancel))
	r.Register(KindPoll, activitySpec("poll", VerbVote))

	r.Register(KindComment, &KindSpec{
		ObjectName: "comment",
		Verbs: []string{
			VerbMention,
			VerbNewComment,
			VerbReply,
			VerbNewSibling,
			VerbModeratorReview,
			VerbEdit,
			VerbDelete,
			VerbFlag,
			VerbLike,
			VerbFollowedUser,
		},
		Headers: map[string]string{
			VerbMention:         "{actor} has mentioned you in their comment",
			VerbNewComment:      "{actor} has submitted a comment on one of your posts",
			VerbReply:           "{actor} has replied to your comment",
			VerbNewSibling:      "{actor} has made a comment on a post you've commented on",
			VerbModeratorReview: "{actor} has submitted or updated a comment to review",
			VerbEdit:            "{actor} has edited your comment",
			VerbDelete:          "{actor} has deleted your comment",
			VerbFlag:            "{actor} has flagged this comment",
			VerbLike:            "{actor} has liked your comment",
			VerbFollowedUser:    "{actor} has submitted a new comment",
		},
		Body: func(s Subject) string {
			return models.Truncate(s.Title(), 30)
		},
	})

	r.Register(KindMessage, &KindSpec{
		ObjectName: "message",
		Verbs:      []string{VerbNewMessage},
		Headers: map[string]string{
			VerbNewMessage: "{actor} has sent you a message",
		},
		Body: func(s Subject) string {
			return models.Truncate(s.Title(), 60)
		},
	})

	r.Register(KindUser, &KindSpec{
		ObjectName: "user",
		Verbs:      []string{VerbNewFollower, VerbNewMember},
		Headers: map[string]string{
			VerbNewFollower: "{actor} has started following you",
			VerbNewMember:   "{actor} has joined this community",
		},
	})

	return r
}
