package notifications_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	messages map[string]notifications.Message // recipient -> message
}

func (d *recordingDispatcher) Dispatch(n *models.Notification, msg notifications.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages[n.RecipientID] = msg
	return nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (i *recordingInvalidator) InvalidateUnread(_ context.Context, _ string, userIDs ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.users = append(i.users, userIDs...)
}

type memoryCache struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{counts: map[string]int64{}}
}

func (c *memoryCache) GetUnread(_ context.Context, communityID, recipientID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[communityID+":"+recipientID]
	return n, ok
}

func (c *memoryCache) SetUnread(_ context.Context, communityID, recipientID string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[communityID+":"+recipientID] = count
}

func (c *memoryCache) InvalidateUnread(_ context.Context, communityID string, userIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.counts, communityID+":"+id)
	}
}

// FanoutTestSuite runs fan-outs and inbox operations against sqlite
type FanoutTestSuite struct {
	suite.Suite
	db          *gorm.DB
	fx          *testutil.Fixtures
	notifier    *notifications.Notifier
	inbox       *notifications.Inbox
	dispatcher  *recordingDispatcher
	invalidator *recordingInvalidator

	community              *models.Community
	alice, bob, carol, mod *models.User
}

func (s *FanoutTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.fx = testutil.NewFixtures(s.T(), s.db)

	registry := notifications.DefaultRegistry()
	scopes := notifications.DefaultScopes()
	s.dispatcher = &recordingDispatcher{messages: map[string]notifications.Message{}}
	s.invalidator = &recordingInvalidator{}

	s.notifier = notifications.NewNotifier(s.db, registry, scopes, repository.NewDirectory)
	s.notifier.SetDispatcher(s.dispatcher)
	s.notifier.SetInvalidator(s.invalidator)
	s.notifier.SetBaseURL("https://local.test/")

	s.inbox = notifications.NewInbox(
		repository.NewNotificationRepository(s.db),
		repository.NewSubjectLoader(s.db),
		registry,
		scopes,
	)

	s.community = s.fx.Community("local.test")
	s.alice = s.fx.User("alice")
	s.bob = s.fx.User("bob")
	s.carol = s.fx.User("carol")
	s.mod = s.fx.User("mod")
	s.fx.Member(s.community, s.alice, models.RoleMember)
	s.fx.Member(s.community, s.bob, models.RoleMember)
	s.fx.Member(s.community, s.carol, models.RoleMember)
	s.fx.Member(s.community, s.mod, models.RoleModerator)
}

func (s *FanoutTestSuite) actorContext(user *models.User) notifications.Context {
	return notifications.Context{CommunityID: s.community.ID, Actor: user}
}

func (s *FanoutTestSuite) createPost(owner *models.User, title string) *models.Activity {
	activity := &models.Activity{
		Kind:        models.ActivityPost,
		OwnerID:     owner.ID,
		CommunityID: s.community.ID,
		Title:       title,
	}
	s.Require().NoError(s.db.Create(activity).Error)
	return activity
}

func (s *FanoutTestSuite) verbs(user *models.User) []string {
	var verbs []string
	for _, n := range s.fx.Notifications(user) {
		verbs = append(verbs, n.Verb)
	}
	return verbs
}

func (s *FanoutTestSuite) TestMentionTagAndModerators() {
	s.fx.FollowTag(s.community, s.carol, "movies")
	s.fx.FollowTag(s.community, s.bob, "movies")
	activity := s.createPost(s.alice, "hello @bob #movies")

	created, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromActivity(activity), notifications.EventCreated)
	s.Require().NoError(err)
	s.Len(created, 3)

	s.Equal([]string{notifications.VerbMention}, s.verbs(s.bob))
	s.Equal([]string{notifications.VerbFollowedTag}, s.verbs(s.carol))
	s.Equal([]string{notifications.VerbCreated}, s.verbs(s.mod))
	s.Empty(s.verbs(s.alice))

	msg := s.dispatcher.messages[s.bob.ID]
	s.Equal("Alice has mentioned you in their post", msg.Header)
	s.Equal("https://local.test/activities/"+activity.ID, msg.URL)
	s.ElementsMatch([]string{s.bob.ID, s.carol.ID, s.mod.ID}, s.invalidator.users)
}

func (s *FanoutTestSuite) TestCreateRollsBackWithCallerTransaction() {
	activity := s.createPost(s.alice, "Short lived")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		created, err := s.notifier.Create(context.Background(), tx, s.actorContext(s.alice),
			notifications.FromActivity(activity), notifications.EventCreated)
		s.Require().NoError(err)
		s.Len(created, 1)
		return gorm.ErrInvalidTransaction
	})
	s.Error(err)
	s.Empty(s.fx.Notifications(s.mod))
}

func (s *FanoutTestSuite) TestMarkReadTouchesOneRow() {
	first := s.createPost(s.alice, "First")
	second := s.createPost(s.alice, "Second")
	for _, a := range []*models.Activity{first, second} {
		_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
			notifications.FromActivity(a), notifications.EventCreated)
		s.Require().NoError(err)
	}
	rows := s.fx.Notifications(s.mod)
	s.Require().Len(rows, 2)

	n, err := s.inbox.MarkRead(context.Background(), s.community.ID, s.mod.ID, rows[0].ID)
	s.Require().NoError(err)
	s.True(n.IsRead)

	after := s.fx.Notifications(s.mod)
	s.True(after[0].IsRead)
	s.False(after[1].IsRead)

	count, err := s.inbox.UnreadCount(context.Background(), s.community.ID, s.mod.ID)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *FanoutTestSuite) TestOtherRecipientsRowIsNotFound() {
	activity := s.createPost(s.alice, "Mine")
	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromActivity(activity), notifications.EventCreated)
	s.Require().NoError(err)
	row := s.fx.Notifications(s.mod)[0]

	_, err = s.inbox.MarkRead(context.Background(), s.community.ID, s.bob.ID, row.ID)
	s.ErrorIs(err, repository.ErrNotificationNotFound)
	s.ErrorIs(s.inbox.Delete(context.Background(), s.community.ID, s.bob.ID, row.ID), repository.ErrNotificationNotFound)
	s.False(s.fx.Notifications(s.mod)[0].IsRead)
}

func (s *FanoutTestSuite) TestListOrdersUnreadFirstAndSkipsDanglingSubjects() {
	older := s.createPost(s.alice, "Older")
	newer := s.createPost(s.alice, "Newer")
	gone := s.createPost(s.alice, "Gone")
	for _, a := range []*models.Activity{older, newer, gone} {
		_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
			notifications.FromActivity(a), notifications.EventCreated)
		s.Require().NoError(err)
	}
	// remove the subject without purging so its notification dangles
	s.Require().NoError(s.db.Delete(&models.Activity{}, "id = ?", gone.ID).Error)

	rows := s.fx.Notifications(s.mod)
	for _, row := range rows {
		if row.SubjectID == newer.ID {
			_, err := s.inbox.MarkRead(context.Background(), s.community.ID, s.mod.ID, row.ID)
			s.Require().NoError(err)
		}
	}

	page, err := s.inbox.List(context.Background(), s.community.ID, s.mod.ID, 1, 20)
	s.Require().NoError(err)
	s.Require().Len(page.Items, 2)
	s.Equal(older.ID, page.Items[0].Notification.SubjectID)
	s.False(page.Items[0].Notification.IsRead)
	s.Equal(newer.ID, page.Items[1].Notification.SubjectID)
	s.Equal("Alice has submitted a new post", page.Items[0].Message.Header)
	s.EqualValues(3, page.Total)
}

func (s *FanoutTestSuite) TestBlockedActorsAreHidden() {
	activity := s.createPost(s.alice, "Hi")
	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromActivity(activity), notifications.EventCreated)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Create(&models.Block{BlockerID: s.mod.ID, BlockedID: s.alice.ID}).Error)

	page, err := s.inbox.List(context.Background(), s.community.ID, s.mod.ID, 1, 20)
	s.Require().NoError(err)
	s.Empty(page.Items)

	count, err := s.inbox.UnreadCount(context.Background(), s.community.ID, s.mod.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *FanoutTestSuite) TestGlobalVerbShowsInEveryCommunity() {
	other := s.fx.Community("other.test")
	s.fx.Member(other, s.bob, models.RoleMember)

	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromUser(s.bob, s.community.ID), notifications.EventFollowed)
	s.Require().NoError(err)

	for _, communityID := range []string{s.community.ID, other.ID} {
		count, err := s.inbox.UnreadCount(context.Background(), communityID, s.bob.ID)
		s.Require().NoError(err)
		s.EqualValues(1, count, communityID)
	}
}

func (s *FanoutTestSuite) TestBulkReadAndDelete() {
	for _, title := range []string{"One", "Two", "Three"} {
		_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
			notifications.FromActivity(s.createPost(s.alice, title)), notifications.EventCreated)
		s.Require().NoError(err)
	}
	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.mod),
		notifications.FromActivity(s.createPost(s.mod, "Rules")), notifications.EventCreated)
	s.Require().NoError(err)

	marked, err := s.inbox.MarkAllRead(context.Background(), s.community.ID, s.mod.ID)
	s.Require().NoError(err)
	s.Equal(3, marked)

	deleted, err := s.inbox.DeleteAll(context.Background(), s.community.ID, s.mod.ID)
	s.Require().NoError(err)
	s.EqualValues(3, deleted)
	s.Empty(s.fx.Notifications(s.mod))
}

func (s *FanoutTestSuite) TestPurgeSubject() {
	activity := s.createPost(s.alice, "hello @bob")
	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromActivity(activity), notifications.EventCreated)
	s.Require().NoError(err)

	var purged *notifications.Purge
	err = s.db.Transaction(func(tx *gorm.DB) error {
		purged, err = s.inbox.PurgeSubject(context.Background(), tx, notifications.FromActivity(activity).Ref())
		return err
	})
	s.Require().NoError(err)
	s.EqualValues(2, purged.Deleted)
	s.ElementsMatch([]notifications.InboxKey{
		{RecipientID: s.bob.ID, CommunityID: s.community.ID},
		{RecipientID: s.mod.ID, CommunityID: s.community.ID},
	}, purged.Recipients)
	s.Empty(s.fx.Notifications(s.bob))
	s.Empty(s.fx.Notifications(s.mod))
}

func (s *FanoutTestSuite) TestPurgeKeepsCachedCountsUntilInvalidated() {
	cache := newMemoryCache()
	s.inbox.SetCache(cache)
	activity := s.createPost(s.alice, "hello @bob")
	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromActivity(activity), notifications.EventCreated)
	s.Require().NoError(err)

	count, err := s.inbox.UnreadCount(context.Background(), s.community.ID, s.bob.ID)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	var purged *notifications.Purge
	err = s.db.Transaction(func(tx *gorm.DB) error {
		purged, err = s.inbox.PurgeSubject(context.Background(), tx, notifications.FromActivity(activity).Ref())
		if err != nil {
			return err
		}
		// A reader racing the uncommitted purge must not find an empty
		// cache slot it could refill with the old count
		_, cached := cache.GetUnread(context.Background(), s.community.ID, s.bob.ID)
		s.True(cached)
		return nil
	})
	s.Require().NoError(err)

	s.inbox.InvalidatePurge(context.Background(), purged)
	_, cached := cache.GetUnread(context.Background(), s.community.ID, s.bob.ID)
	s.False(cached)

	count, err = s.inbox.UnreadCount(context.Background(), s.community.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *FanoutTestSuite) TestReadHookRunsForKind() {
	msg := &models.Message{SenderID: s.alice.ID, RecipientID: s.bob.ID, CommunityID: s.community.ID, Message: "hi"}
	s.Require().NoError(s.db.Create(msg).Error)
	_, err := s.notifier.Notify(context.Background(), s.actorContext(s.alice),
		notifications.FromMessage(msg), notifications.EventMessaged)
	s.Require().NoError(err)

	var seen []string
	s.inbox.OnRead(notifications.KindMessage, func(_ context.Context, n *models.Notification) error {
		seen = append(seen, n.SubjectID)
		return nil
	})

	row := s.fx.Notifications(s.bob)[0]
	_, err = s.inbox.MarkRead(context.Background(), s.community.ID, s.bob.ID, row.ID)
	s.Require().NoError(err)
	s.Equal([]string{msg.ID}, seen)
}

func TestFanoutTestSuite(t *testing.T) {
	suite.Run(t, new(FanoutTestSuite))
}

func TestNotifyWithoutDispatcher(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	community := fx.Community("quiet.test")
	owner := fx.User("owner")
	mod := fx.User("moderator")
	fx.Member(community, owner, models.RoleMember)
	fx.Member(community, mod, models.RoleModerator)

	activity := &models.Activity{Kind: models.ActivityPost, OwnerID: owner.ID, CommunityID: community.ID, Title: "Quiet"}
	require.NoError(t, db.Create(activity).Error)

	notifier := notifications.NewNotifier(db, notifications.DefaultRegistry(), nil, repository.NewDirectory)
	created, err := notifier.Notify(context.Background(),
		notifications.Context{CommunityID: community.ID, Actor: owner},
		notifications.FromActivity(activity), notifications.EventCreated)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, mod.ID, created[0].RecipientID)
	assert.NotEmpty(t, created[0].ID)
}
