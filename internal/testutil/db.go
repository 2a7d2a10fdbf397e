// Package testutil builds fixtures for package tests
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Butonix/localhub/internal/database"
	"github.com/Butonix/localhub/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory sqlite database with every table migrated
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Fixtures creates users, communities and memberships
type Fixtures struct {
	t  testing.TB
	db *gorm.DB
}

// NewFixtures creates a fixture builder over db
func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// User creates a user named username
func (f *Fixtures) User(username string) *models.User {
	f.t.Helper()
	user := &models.User{
		Username: username,
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Email:    username + "@example.com",
	}
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

// Community creates an active community served at domain
func (f *Fixtures) Community(domain string) *models.Community {
	f.t.Helper()
	community := &models.Community{Domain: domain, Name: domain, Active: true}
	require.NoError(f.t, f.db.Create(community).Error)
	return community
}

// Member adds user to community with role
func (f *Fixtures) Member(community *models.Community, user *models.User, role string) *models.Membership {
	f.t.Helper()
	membership := &models.Membership{
		CommunityID: community.ID,
		MemberID:    user.ID,
		Role:        role,
		Active:      true,
	}
	require.NoError(f.t, f.db.Create(membership).Error)
	membership.Member = user
	return membership
}

// Follow makes follower follow following
func (f *Fixtures) Follow(follower, following *models.User) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error)
}

// FollowTag subscribes user to tag in community
func (f *Fixtures) FollowTag(community *models.Community, user *models.User, tag string) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.TagFollow{UserID: user.ID, CommunityID: community.ID, Tag: tag}).Error)
}

// Block makes blocker block blocked
func (f *Fixtures) Block(blocker, blocked *models.User) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Block{BlockerID: blocker.ID, BlockedID: blocked.ID}).Error)
}

// Notifications returns every notification row of recipient
func (f *Fixtures) Notifications(recipient *models.User) []*models.Notification {
	f.t.Helper()
	var rows []*models.Notification
	require.NoError(f.t, f.db.WithContext(context.Background()).
		Where("recipient_id = ?", recipient.ID).
		Order("created_at, id").
		Find(&rows).Error)
	return rows
}
