package repository_test

import (
	"context"
	"testing"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryMembership(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()

	community := fx.Community("local.test")
	other := fx.Community("other.test")
	alice := fx.User("alice")
	bob := fx.User("Bob")
	mod := fx.User("mod")
	outsider := fx.User("outsider")
	fx.Member(community, alice, models.RoleMember)
	fx.Member(community, bob, models.RoleMember)
	fx.Member(community, mod, models.RoleModerator)
	fx.Member(other, outsider, models.RoleAdmin)

	dir := repository.NewDirectory(db)

	active, err := dir.ActiveMembers(ctx, community.ID, []string{alice.ID, outsider.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{alice.ID: true}, active)

	ids, err := dir.MembersByUsername(ctx, community.ID, []string{"bob", "outsider", "nobody", "alice", "BOB"})
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID, alice.ID}, ids)

	mods, err := dir.Moderators(ctx, community.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{mod.ID}, mods)
}

func TestDirectoryGraph(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()

	community := fx.Community("local.test")
	alice := fx.User("alice")
	bob := fx.User("bob")
	carol := fx.User("carol")
	fx.Follow(bob, alice)
	fx.Follow(carol, alice)
	fx.FollowTag(community, carol, "movies")
	fx.FollowTag(community, carol, "food")
	fx.FollowTag(community, bob, "food")

	dir := repository.NewDirectory(db)

	followers, err := dir.Followers(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.ID, carol.ID}, followers)

	tagged, err := dir.TagFollowers(ctx, community.ID, []string{"movies", "food"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carol.ID, bob.ID}, tagged)

	none, err := dir.TagFollowers(ctx, community.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDirectoryBlockedBy(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()
	alice := fx.User("alice")
	bob := fx.User("bob")
	carol := fx.User("carol")
	fx.Block(carol, alice)
	fx.Block(alice, bob)

	dir := repository.NewDirectory(db)

	blocked, err := dir.BlockedBy(ctx, alice.ID, []string{bob.ID, carol.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{carol.ID: true}, blocked)

	blocked, err = dir.BlockedBy(ctx, alice.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}

func TestPushSubscriptionRepository(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()
	community := fx.Community("local.test")
	alice := fx.User("alice")

	repo := repository.NewPushSubscriptionRepository(db)
	sub := func() *models.PushSubscription {
		return &models.PushSubscription{
			UserID:      alice.ID,
			CommunityID: community.ID,
			Endpoint:    "https://push.example/a",
			Auth:        "auth",
			P256dh:      "key",
		}
	}

	created, err := repo.Subscribe(ctx, sub())
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Subscribe(ctx, sub())
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.Subscribe(ctx, &models.PushSubscription{})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	subs, err := repo.ListForUser(ctx, alice.ID, community.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	removed, err := repo.Unsubscribe(ctx, alice.ID, community.ID, "https://push.example/a", "wrong", "key")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.Delete(ctx, subs[0].ID))
	subs, err = repo.ListForUser(ctx, alice.ID, community.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
