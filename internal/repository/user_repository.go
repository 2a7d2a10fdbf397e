package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository handles all database operations for users and the
// user-to-user social graph
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error)

	// Follow relationship. CreateFollow reports whether a new row was written.
	CreateFollow(ctx context.Context, followerID, followingID string) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetFollowerCount(ctx context.Context, userID string) (int64, error)

	// Tag follows
	FollowTag(ctx context.Context, userID, communityID, tag string) (bool, error)
	UnfollowTag(ctx context.Context, userID, communityID, tag string) error

	// Blocks hide the blocked user's notifications from the blocker
	Block(ctx context.Context, blockerID, blockedID string) (bool, error)
	Unblock(ctx context.Context, blockerID, blockedID string) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser creates a new user
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "LOWER(username) = ?", strings.ToLower(username))
}

func (r *userRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers gets multiple users by ID
func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error) {
	var users []*models.User
	if len(userIDs) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, err
}

// CreateFollow creates a follow relationship
func (r *userRepository) CreateFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" || followingID == "" || followerID == followingID {
		return false, ErrInvalidInput
	}
	return r.insertIgnore(ctx, &models.Follow{FollowerID: followerID, FollowingID: followingID})
}

// DeleteFollow removes a follow relationship
func (r *userRepository) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
}

// IsFollowing checks if a user follows another
func (r *userRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// GetFollowerCount gets follower count for a user
func (r *userRepository) GetFollowerCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Count(&count).Error
	return count, err
}

// FollowTag subscribes a user to a tag in a community
func (r *userRepository) FollowTag(ctx context.Context, userID, communityID, tag string) (bool, error) {
	if tag == "" {
		return false, ErrInvalidInput
	}
	return r.insertIgnore(ctx, &models.TagFollow{UserID: userID, CommunityID: communityID, Tag: tag})
}

// UnfollowTag removes a tag subscription
func (r *userRepository) UnfollowTag(ctx context.Context, userID, communityID, tag string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ? AND tag = ?", userID, communityID, tag).
		Delete(&models.TagFollow{}).Error
}

// Block hides blockedID's activity from blockerID
func (r *userRepository) Block(ctx context.Context, blockerID, blockedID string) (bool, error) {
	if blockerID == blockedID {
		return false, ErrInvalidInput
	}
	return r.insertIgnore(ctx, &models.Block{BlockerID: blockerID, BlockedID: blockedID})
}

// Unblock removes a block
func (r *userRepository) Unblock(ctx context.Context, blockerID, blockedID string) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

// insertIgnore inserts a row guarded by a unique index. A concurrent
// duplicate is not an error; it reports false.
func (r *userRepository) insertIgnore(ctx context.Context, value interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
