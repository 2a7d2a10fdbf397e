package notifications

import (
	"context"
	"fmt"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/util"
)

// Event is the lifecycle event that triggered a fan-out
type Event string

const (
	EventCreated  Event = "created"
	EventUpdated  Event = "updated"
	EventDeleted  Event = "deleted"
	EventLiked    Event = "liked"
	EventFlagged  Event = "flagged"
	EventReshared Event = "reshared"
	EventVoted    Event = "voted"
	EventAttended Event = "attended"
	EventCanceled Event = "canceled"
	EventFollowed Event = "followed"
	EventJoined   Event = "joined"
	EventMessaged Event = "messaged"
)

// Context carries the request-scoped facts a fan-out needs
type Context struct {
	CommunityID string
	Actor       *models.User
	// ContentChanged is set on EventUpdated when the text body changed.
	// Mentions and tags are only re-notified when it is true.
	ContentChanged bool
}

// ActorID returns the acting user's id
func (c Context) ActorID() string {
	if c.Actor == nil {
		return ""
	}
	return c.Actor.ID
}

// Directory answers the relationship queries the resolver needs. Every
// method returns users in a stable order.
type Directory interface {
	// ActiveMembers returns the subset of userIDs with an active membership in the community
	ActiveMembers(ctx context.Context, communityID string, userIDs []string) (map[string]bool, error)
	// MembersByUsername returns ids of active members with the given usernames, in input order
	MembersByUsername(ctx context.Context, communityID string, usernames []string) ([]string, error)
	// Moderators returns active moderators and admins of the community
	Moderators(ctx context.Context, communityID string) ([]string, error)
	// Followers returns users following userID
	Followers(ctx context.Context, userID string) ([]string, error)
	// TagFollowers returns users following any of tags in the community
	TagFollowers(ctx context.Context, communityID string, tags []string) ([]string, error)
	// Commenters returns owners of live comments on an activity, earliest first
	Commenters(ctx context.Context, activityID string) ([]string, error)
	// Attendees returns users attending an event
	Attendees(ctx context.Context, eventID string) ([]string, error)
	// BlockedBy returns the subset of userIDs who have blocked actorID
	BlockedBy(ctx context.Context, actorID string, userIDs []string) (map[string]bool, error)
}

// ErrUnsupportedEvent is returned when a subject kind has no policy for an event
type ErrUnsupportedEvent struct {
	Kind  SubjectKind
	Event Event
}

func (e *ErrUnsupportedEvent) Error() string {
	return fmt.Sprintf("no notification policy for %s on %s", e.Event, e.Kind)
}

// Resolver computes candidate recipients for a subject event
type Resolver struct {
	dir    Directory
	scopes *Scopes
}

// NewResolver creates a resolver over a directory
func NewResolver(dir Directory, scopes *Scopes) *Resolver {
	if scopes == nil {
		scopes = DefaultScopes()
	}
	return &Resolver{dir: dir, scopes: scopes}
}

// rule produces candidates in priority order
type rule func(ctx context.Context) ([]Candidate, error)

// Resolve returns every candidate for the event before deduplication.
// Candidates for the actor and for users without an active membership
// (community-scoped verbs only) are already filtered out.
func (r *Resolver) Resolve(ctx context.Context, nctx Context, subject Subject, event Event) ([]Candidate, error) {
	rules, err := r.rulesFor(nctx, subject, event)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, apply := range rules {
		found, err := apply(ctx)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}

	return r.filter(ctx, nctx, subject, candidates)
}

// Plan resolves and deduplicates in one step
func (r *Resolver) Plan(ctx context.Context, nctx Context, subject Subject, event Event) ([]Candidate, error) {
	candidates, err := r.Resolve(ctx, nctx, subject, event)
	if err != nil {
		return nil, err
	}
	return Dedup(candidates), nil
}

func (r *Resolver) rulesFor(nctx Context, subject Subject, event Event) ([]rule, error) {
	switch s := subject.(type) {
	case *ActivitySubject:
		return r.activityRules(nctx, s, event)
	case *CommentSubject:
		return r.commentRules(nctx, s, event)
	case *MessageSubject:
		if event == EventMessaged {
			return []rule{r.single(s.Message.RecipientID, VerbNewMessage, nctx)}, nil
		}
	case *UserSubject:
		switch event {
		case EventFollowed:
			return []rule{r.single(s.User.ID, VerbNewFollower, nctx)}, nil
		case EventJoined:
			return []rule{r.moderators(s.Community, VerbNewMember, nctx)}, nil
		}
	}
	return nil, &ErrUnsupportedEvent{Kind: subject.Ref().Kind, Event: event}
}

func (r *Resolver) activityRules(nctx Context, s *ActivitySubject, event Event) ([]rule, error) {
	a := s.Activity
	ownerActs := nctx.ActorID() == a.OwnerID

	switch event {
	case EventCreated:
		return []rule{
			r.mentions(a.CommunityID, s.Text(), nctx),
			r.moderators(a.CommunityID, VerbCreated, nctx),
			r.followers(nctx),
			r.tagFollowers(a.CommunityID, s.Text(), nctx),
		}, nil
	case EventUpdated:
		var rules []rule
		if nctx.ContentChanged {
			rules = append(rules, r.mentions(a.CommunityID, s.Text(), nctx))
		}
		if ownerActs {
			rules = append(rules, r.moderators(a.CommunityID, VerbUpdated, nctx))
		} else {
			rules = append(rules,
				r.single(a.OwnerID, VerbEdit, nctx),
				r.moderators(a.CommunityID, VerbModeratorReview, nctx),
			)
		}
		if nctx.ContentChanged {
			rules = append(rules, r.tagFollowers(a.CommunityID, s.Text(), nctx))
		}
		return rules, nil
	case EventDeleted:
		if ownerActs {
			return nil, nil
		}
		return []rule{r.single(a.OwnerID, VerbDelete, nctx)}, nil
	case EventLiked:
		return []rule{r.single(a.OwnerID, VerbLike, nctx)}, nil
	case EventFlagged:
		return []rule{r.moderators(a.CommunityID, VerbFlag, nctx)}, nil
	case EventReshared:
		return []rule{r.single(a.OwnerID, VerbReshare, nctx)}, nil
	case EventVoted:
		if a.Kind == models.ActivityPoll {
			return []rule{r.single(a.OwnerID, VerbVote, nctx)}, nil
		}
	case EventAttended:
		if a.Kind == models.ActivityEvent {
			return []rule{r.single(a.OwnerID, VerbAttend, nctx)}, nil
		}
	case EventCanceled:
		if a.Kind == models.ActivityEvent {
			return []rule{
				r.attendees(a.ID, VerbCancel, nctx),
				r.single(a.OwnerID, VerbCancel, nctx),
			}, nil
		}
	}
	return nil, &ErrUnsupportedEvent{Kind: s.Ref().Kind, Event: event}
}

func (r *Resolver) commentRules(nctx Context, s *CommentSubject, event Event) ([]rule, error) {
	c := s.Comment
	ownerActs := nctx.ActorID() == c.OwnerID

	switch event {
	case EventCreated:
		rules := []rule{r.mentions(c.CommunityID, s.Text(), nctx)}
		var activityOwner string
		if s.Activity != nil {
			activityOwner = s.Activity.OwnerID
			rules = append(rules, r.single(activityOwner, VerbNewComment, nctx))
		}
		rules = append(rules, r.moderators(c.CommunityID, VerbModeratorReview, nctx))
		var parentOwner string
		if s.Parent != nil {
			parentOwner = s.Parent.OwnerID
			rules = append(rules, r.single(parentOwner, VerbReply, nctx))
		}
		rules = append(rules,
			r.siblings(c.ActivityID, nctx, activityOwner, parentOwner),
			r.followers(nctx),
		)
		return rules, nil
	case EventUpdated:
		var rules []rule
		if nctx.ContentChanged {
			rules = append(rules, r.mentions(c.CommunityID, s.Text(), nctx))
		}
		if !ownerActs {
			rules = append(rules, r.single(c.OwnerID, VerbEdit, nctx))
		}
		rules = append(rules, r.moderators(c.CommunityID, VerbModeratorReview, nctx))
		return rules, nil
	case EventDeleted:
		if ownerActs {
			return nil, nil
		}
		return []rule{r.single(c.OwnerID, VerbDelete, nctx)}, nil
	case EventLiked:
		return []rule{r.single(c.OwnerID, VerbLike, nctx)}, nil
	case EventFlagged:
		return []rule{r.moderators(c.CommunityID, VerbFlag, nctx)}, nil
	}
	return nil, &ErrUnsupportedEvent{Kind: KindComment, Event: event}
}

func candidatesFor(userIDs []string, verb string, nctx Context) []Candidate {
	result := make([]Candidate, 0, len(userIDs))
	for _, id := range userIDs {
		result = append(result, Candidate{RecipientID: id, Verb: verb, ActorID: nctx.ActorID()})
	}
	return result
}

func (r *Resolver) single(userID, verb string, nctx Context) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		if userID == "" {
			return nil, nil
		}
		return candidatesFor([]string{userID}, verb, nctx), nil
	}
}

func (r *Resolver) mentions(communityID, text string, nctx Context) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		usernames := util.ExtractMentions(text)
		if len(usernames) == 0 {
			return nil, nil
		}
		ids, err := r.dir.MembersByUsername(ctx, communityID, usernames)
		if err != nil {
			return nil, fmt.Errorf("resolve mentions: %w", err)
		}
		return candidatesFor(ids, VerbMention, nctx), nil
	}
}

func (r *Resolver) moderators(communityID, verb string, nctx Context) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		ids, err := r.dir.Moderators(ctx, communityID)
		if err != nil {
			return nil, fmt.Errorf("resolve moderators: %w", err)
		}
		return candidatesFor(ids, verb, nctx), nil
	}
}

func (r *Resolver) followers(nctx Context) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		if nctx.ActorID() == "" {
			return nil, nil
		}
		ids, err := r.dir.Followers(ctx, nctx.ActorID())
		if err != nil {
			return nil, fmt.Errorf("resolve followers: %w", err)
		}
		return candidatesFor(ids, VerbFollowedUser, nctx), nil
	}
}

func (r *Resolver) tagFollowers(communityID, text string, nctx Context) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		tags := util.ExtractHashtags(text)
		if len(tags) == 0 {
			return nil, nil
		}
		ids, err := r.dir.TagFollowers(ctx, communityID, tags)
		if err != nil {
			return nil, fmt.Errorf("resolve tag followers: %w", err)
		}
		return candidatesFor(ids, VerbFollowedTag, nctx), nil
	}
}

func (r *Resolver) siblings(activityID string, nctx Context, exclude ...string) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		ids, err := r.dir.Commenters(ctx, activityID)
		if err != nil {
			return nil, fmt.Errorf("resolve commenters: %w", err)
		}
		skip := make(map[string]bool, len(exclude)+1)
		skip[nctx.ActorID()] = true
		for _, id := range exclude {
			skip[id] = true
		}
		var kept []string
		for _, id := range ids {
			if !skip[id] {
				kept = append(kept, id)
			}
		}
		return candidatesFor(kept, VerbNewSibling, nctx), nil
	}
}

func (r *Resolver) attendees(eventID, verb string, nctx Context) rule {
	return func(ctx context.Context) ([]Candidate, error) {
		ids, err := r.dir.Attendees(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("resolve attendees: %w", err)
		}
		return candidatesFor(ids, verb, nctx), nil
	}
}

// filter drops self-notifications, recipients who blocked the actor and,
// for community-scoped verbs, recipients without an active membership
func (r *Resolver) filter(ctx context.Context, nctx Context, subject Subject, candidates []Candidate) ([]Candidate, error) {
	actorID := nctx.ActorID()
	communityID := nctx.CommunityID
	if communityID == "" {
		communityID = subject.CommunityID()
	}

	var scoped, recipients []string
	seen := make(map[string]bool)
	seenScoped := make(map[string]bool)
	for _, c := range candidates {
		if c.RecipientID == "" || c.RecipientID == actorID {
			continue
		}
		if !seen[c.RecipientID] {
			seen[c.RecipientID] = true
			recipients = append(recipients, c.RecipientID)
		}
		if !r.scopes.IsGlobal(c.Verb) && !seenScoped[c.RecipientID] {
			seenScoped[c.RecipientID] = true
			scoped = append(scoped, c.RecipientID)
		}
	}

	blocked := map[string]bool{}
	if actorID != "" && len(recipients) > 0 {
		var err error
		blocked, err = r.dir.BlockedBy(ctx, actorID, recipients)
		if err != nil {
			return nil, fmt.Errorf("check blocks: %w", err)
		}
	}

	active := map[string]bool{}
	if len(scoped) > 0 {
		var err error
		active, err = r.dir.ActiveMembers(ctx, communityID, scoped)
		if err != nil {
			return nil, fmt.Errorf("check memberships: %w", err)
		}
	}

	result := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.RecipientID == "" || c.RecipientID == actorID || blocked[c.RecipientID] {
			continue
		}
		if !r.scopes.IsGlobal(c.Verb) && !active[c.RecipientID] {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}
