package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/Butonix/localhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryDirectory answers relationship queries from maps
type memoryDirectory struct {
	usernames    map[string]string // username -> id
	active       map[string]bool
	moderators   []string
	followers    map[string][]string
	tagFollowers map[string][]string
	commenters   map[string][]string
	attendees    map[string][]string
	blocks       map[string][]string // blocker -> blocked
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{
		usernames:    map[string]string{},
		active:       map[string]bool{},
		followers:    map[string][]string{},
		tagFollowers: map[string][]string{},
		commenters:   map[string][]string{},
		attendees:    map[string][]string{},
		blocks:       map[string][]string{},
	}
}

func (d *memoryDirectory) member(username string) string {
	id := "id-" + username
	d.usernames[username] = id
	d.active[id] = true
	return id
}

func (d *memoryDirectory) ActiveMembers(_ context.Context, _ string, userIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range userIDs {
		if d.active[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (d *memoryDirectory) MembersByUsername(_ context.Context, _ string, usernames []string) ([]string, error) {
	var ids []string
	for _, name := range usernames {
		if id, ok := d.usernames[name]; ok && d.active[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *memoryDirectory) Moderators(context.Context, string) ([]string, error) {
	return d.moderators, nil
}

func (d *memoryDirectory) Followers(_ context.Context, userID string) ([]string, error) {
	return d.followers[userID], nil
}

func (d *memoryDirectory) TagFollowers(_ context.Context, _ string, tags []string) ([]string, error) {
	var ids []string
	seen := map[string]bool{}
	for _, tag := range tags {
		for _, id := range d.tagFollowers[tag] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (d *memoryDirectory) Commenters(_ context.Context, activityID string) ([]string, error) {
	return d.commenters[activityID], nil
}

func (d *memoryDirectory) Attendees(_ context.Context, eventID string) ([]string, error) {
	return d.attendees[eventID], nil
}

func (d *memoryDirectory) BlockedBy(_ context.Context, actorID string, userIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range userIDs {
		for _, blocked := range d.blocks[id] {
			if blocked == actorID {
				out[id] = true
			}
		}
	}
	return out, nil
}

func post(ownerID, title, description string) *models.Activity {
	return &models.Activity{
		ID:          "activity-1",
		Kind:        models.ActivityPost,
		OwnerID:     ownerID,
		CommunityID: "community-1",
		Title:       title,
		Description: description,
	}
}

func actorContext(id string) Context {
	return Context{CommunityID: "community-1", Actor: &models.User{ID: id, Username: id}}
}

func TestPlanCreatedWithoutAudienceReachesModeratorsOnly(t *testing.T) {
	dir := newMemoryDirectory()
	alice := dir.member("alice")
	mod := dir.member("mod")
	dir.moderators = []string{mod, alice}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(alice), FromActivity(post(alice, "Garage sale", "")), EventCreated)
	require.NoError(t, err)

	assert.Equal(t, []Candidate{{RecipientID: mod, Verb: VerbCreated, ActorID: alice}}, planned)
}

func TestPlanKeepsHighestPriorityVerbPerRecipient(t *testing.T) {
	dir := newMemoryDirectory()
	alice := dir.member("alice")
	bob := dir.member("bob")
	carol := dir.member("carol")
	mod := dir.member("mod")
	dir.moderators = []string{mod, bob}
	dir.followers[alice] = []string{bob}
	dir.tagFollowers["movies"] = []string{carol, bob}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(alice), FromActivity(post(alice, "hello @bob #movies", "")), EventCreated)
	require.NoError(t, err)

	assert.Equal(t, []Candidate{
		{RecipientID: bob, Verb: VerbMention, ActorID: alice},
		{RecipientID: mod, Verb: VerbCreated, ActorID: alice},
		{RecipientID: carol, Verb: VerbFollowedTag, ActorID: alice},
	}, planned)
}

func TestPlanIsDeterministic(t *testing.T) {
	dir := newMemoryDirectory()
	alice := dir.member("alice")
	dir.moderators = []string{dir.member("mod1"), dir.member("mod2")}
	dir.followers[alice] = []string{dir.member("fan1"), dir.member("fan2")}
	dir.tagFollowers["food"] = []string{dir.member("cook")}
	resolver := NewResolver(dir, nil)
	subject := FromActivity(post(alice, "Soup swap @fan2", "#food"))

	first, err := resolver.Plan(context.Background(), actorContext(alice), subject, EventCreated)
	require.NoError(t, err)
	second, err := resolver.Plan(context.Background(), actorContext(alice), subject, EventCreated)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Dedup(first), first)
}

func TestPlanSkipsNonMembersForCommunityVerbs(t *testing.T) {
	dir := newMemoryDirectory()
	alice := dir.member("alice")
	gone := dir.member("gone")
	dir.active[gone] = false
	dir.followers[alice] = []string{gone}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(alice), FromActivity(post(alice, "Anyone?", "")), EventCreated)
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestPlanSkipsRecipientsWhoBlockedTheActor(t *testing.T) {
	dir := newMemoryDirectory()
	alice := dir.member("alice")
	carol := dir.member("carol")
	mod := dir.member("mod")
	dir.moderators = []string{mod, carol}
	dir.blocks[carol] = []string{alice}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(alice), FromActivity(post(alice, "hi @carol", "")), EventCreated)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{RecipientID: mod, Verb: VerbCreated, ActorID: alice}}, planned)

	// Blocks apply to global verbs too
	planned, err = NewResolver(dir, nil).Plan(context.Background(),
		actorContext(alice), FromUser(&models.User{ID: carol, Username: "carol"}, "community-1"), EventFollowed)
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestPlanGlobalVerbIgnoresMembership(t *testing.T) {
	dir := newMemoryDirectory()
	alice := dir.member("alice")
	outsider := &models.User{ID: "outsider", Username: "outsider"}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(alice), FromUser(outsider, "community-1"), EventFollowed)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{RecipientID: "outsider", Verb: VerbNewFollower, ActorID: alice}}, planned)

	// The same verb is dropped once it is configured as community scoped
	planned, err = NewResolver(dir, NewScopes(nil)).Plan(context.Background(),
		actorContext(alice), FromUser(outsider, "community-1"), EventFollowed)
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestPlanCommentReplyAndSiblings(t *testing.T) {
	dir := newMemoryDirectory()
	owner := dir.member("owner")
	parentAuthor := dir.member("parent")
	sibling := dir.member("sibling")
	eve := dir.member("eve")
	mod := dir.member("mod")
	dir.moderators = []string{mod}
	dir.commenters["activity-1"] = []string{parentAuthor, sibling, eve, owner}

	activity := post(owner, "Film night", "")
	parentID := "comment-1"
	parent := &models.Comment{ID: parentID, OwnerID: parentAuthor, ActivityID: activity.ID, CommunityID: "community-1"}
	comment := &models.Comment{
		ID:          "comment-2",
		OwnerID:     eve,
		ActivityID:  activity.ID,
		CommunityID: "community-1",
		ParentID:    &parentID,
		Content:     "Count me in",
	}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(eve), FromComment(comment, activity, parent), EventCreated)
	require.NoError(t, err)

	assert.Equal(t, []Candidate{
		{RecipientID: owner, Verb: VerbNewComment, ActorID: eve},
		{RecipientID: mod, Verb: VerbModeratorReview, ActorID: eve},
		{RecipientID: parentAuthor, Verb: VerbReply, ActorID: eve},
		{RecipientID: sibling, Verb: VerbNewSibling, ActorID: eve},
	}, planned)
}

func TestPlanUpdateByModerator(t *testing.T) {
	dir := newMemoryDirectory()
	owner := dir.member("owner")
	mod := dir.member("mod")
	other := dir.member("other")
	dir.moderators = []string{mod, other}

	planned, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext(mod), FromActivity(post(owner, "Lost cat", "")), EventUpdated)
	require.NoError(t, err)

	assert.Equal(t, []Candidate{
		{RecipientID: owner, Verb: VerbEdit, ActorID: mod},
		{RecipientID: other, Verb: VerbModeratorReview, ActorID: mod},
	}, planned)
}

func TestPlanUpdateOnlyRenotifiesMentionsWhenContentChanged(t *testing.T) {
	dir := newMemoryDirectory()
	owner := dir.member("owner")
	bob := dir.member("bob")
	subject := FromActivity(post(owner, "Ask @bob", ""))

	nctx := actorContext(owner)
	planned, err := NewResolver(dir, nil).Plan(context.Background(), nctx, subject, EventUpdated)
	require.NoError(t, err)
	assert.Empty(t, planned)

	nctx.ContentChanged = true
	planned, err = NewResolver(dir, nil).Plan(context.Background(), nctx, subject, EventUpdated)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{RecipientID: bob, Verb: VerbMention, ActorID: owner}}, planned)
}

func TestPlanCancelReachesAttendeesAndOwner(t *testing.T) {
	dir := newMemoryDirectory()
	owner := dir.member("owner")
	mod := dir.member("mod")
	guest := dir.member("guest")
	event := post(owner, "Picnic", "")
	event.Kind = models.ActivityEvent
	dir.attendees[event.ID] = []string{guest, owner}

	planned, err := NewResolver(dir, nil).Plan(context.Background(), actorContext(mod), FromActivity(event), EventCanceled)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{RecipientID: guest, Verb: VerbCancel, ActorID: mod},
		{RecipientID: owner, Verb: VerbCancel, ActorID: mod},
	}, planned)
}

func TestPlanUnsupportedEvent(t *testing.T) {
	dir := newMemoryDirectory()
	owner := dir.member("owner")

	_, err := NewResolver(dir, nil).Plan(context.Background(),
		actorContext("voter"), FromActivity(post(owner, "Not a poll", "")), EventVoted)

	var unsupported *ErrUnsupportedEvent
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, KindPost, unsupported.Kind)
	assert.Equal(t, EventVoted, unsupported.Event)
}

func TestDedupFirstWins(t *testing.T) {
	in := []Candidate{
		{RecipientID: "a", Verb: VerbMention},
		{RecipientID: "b", Verb: VerbCreated},
		{RecipientID: "a", Verb: VerbCreated},
		{RecipientID: "b", Verb: VerbFollowedTag},
	}
	assert.Equal(t, []Candidate{
		{RecipientID: "a", Verb: VerbMention},
		{RecipientID: "b", Verb: VerbCreated},
	}, Dedup(in))
	assert.Empty(t, Dedup(nil))
}

func TestRegistryRendering(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, "Bob has mentioned you in their event", r.Header(KindEvent, VerbMention, "Bob"))
	assert.Equal(t, "Bob has replied to your comment", r.Header(KindComment, VerbReply, "Bob"))
	assert.True(t, r.Allows(KindPoll, VerbVote))
	assert.False(t, r.Allows(KindPost, VerbVote))
	assert.Contains(t, r.AllVerbs(), VerbNewMessage)

	subject := FromActivity(post("owner", "A very long title that keeps going well past the sixty rune limit", ""))
	body := r.Body(subject)
	assert.Len(t, []rune(body), 60)
	assert.Equal(t, "…", string([]rune(body)[59:]))
}

func TestScopes(t *testing.T) {
	s := NewScopes([]string{" new_follower ", "", "new_member"})
	assert.True(t, s.IsGlobal(VerbNewFollower))
	assert.True(t, s.IsGlobal(VerbNewMember))
	assert.False(t, s.IsGlobal(VerbMention))
	assert.Equal(t, []string{VerbNewFollower, VerbNewMember}, s.GlobalVerbs())

	var none *Scopes
	assert.Equal(t, ScopeCommunity, none.Of(VerbNewFollower))
}
