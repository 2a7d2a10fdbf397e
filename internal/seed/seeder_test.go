package seed

import (
	"context"
	"testing"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/social"
	"github.com/Butonix/localhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	db := testutil.NewDB(t)
	registry := notifications.DefaultRegistry()
	scopes := notifications.DefaultScopes()
	notifier := notifications.NewNotifier(db, registry, scopes, repository.NewDirectory)
	inbox := notifications.NewInbox(repository.NewNotificationRepository(db), repository.NewSubjectLoader(db), registry, scopes)
	return NewSeeder(db, social.NewService(db, notifier, inbox)), db
}

func verbsOf(t *testing.T, db *gorm.DB, username string) []string {
	user, err := repository.NewUserRepository(db).GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	var verbs []string
	for _, n := range testutil.NewFixtures(t, db).Notifications(user) {
		verbs = append(verbs, n.Verb)
	}
	return verbs
}

func TestSeedTestLeavesNotifications(t *testing.T) {
	seeder, db := newSeeder(t)
	require.NoError(t, seeder.SeedTest(context.Background(), "Local.Test"))

	community, err := repository.NewCommunityRepository(db).GetCommunityByDomain(context.Background(), "local.test")
	require.NoError(t, err)
	assert.Equal(t, "Localhub Test", community.Name)

	bob := verbsOf(t, db, "bob")
	assert.Contains(t, bob, notifications.VerbNewFollower)
	assert.Contains(t, bob, notifications.VerbLike)
	assert.Contains(t, bob, notifications.VerbNewMessage)
	assert.Contains(t, verbsOf(t, db, "eve"), notifications.VerbMention)
	assert.Contains(t, verbsOf(t, db, "charlie"), notifications.VerbFollowedTag)

	alice := verbsOf(t, db, "alice")
	assert.Contains(t, alice, notifications.VerbNewMember)
	assert.Contains(t, alice, notifications.VerbMention)
}

func TestSeedDevAndClean(t *testing.T) {
	seeder, db := newSeeder(t)
	ctx := context.Background()
	require.NoError(t, seeder.SeedDev(ctx, "dev.test", 5, 4))

	var users, activities int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Activity{}).Count(&activities).Error)
	assert.EqualValues(t, 5, users)
	assert.EqualValues(t, 4, activities)

	require.NoError(t, seeder.Clean(ctx))
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestSeedDevNeedsTwoUsers(t *testing.T) {
	seeder, _ := newSeeder(t)
	assert.Error(t, seeder.SeedDev(context.Background(), "dev.test", 1, 1))
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "jane_doe42", sanitizeUsername("Jane_Doe-42!"))
	assert.Len(t, sanitizeUsername("abcdefghijklmnopqrstuvwxyz0123456789"), 30)
}
