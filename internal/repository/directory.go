package repository

import (
	"context"
	"strings"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"gorm.io/gorm"
)

// directory answers the resolver's membership and social graph questions
// with ordered queries so fan-outs are deterministic
type directory struct {
	db *gorm.DB
}

// NewDirectory binds a directory to db, usually a transaction
func NewDirectory(db *gorm.DB) notifications.Directory {
	return &directory{db: db}
}

// ActiveMembers returns the subset of userIDs with an active membership
func (d *directory) ActiveMembers(ctx context.Context, communityID string, userIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.Membership{}).
		Where("community_id = ? AND active = ? AND member_id IN ?", communityID, true, userIDs).
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// MembersByUsername maps usernames to ids of active members, in input order.
// Unknown usernames and non-members are skipped.
func (d *directory) MembersByUsername(ctx context.Context, communityID string, usernames []string) ([]string, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(usernames))
	for i, u := range usernames {
		lowered[i] = strings.ToLower(u)
	}

	type row struct {
		ID       string
		Username string
	}
	var rows []row
	err := d.db.WithContext(ctx).Table("users").
		Select("users.id, users.username").
		Joins("JOIN memberships ON memberships.member_id = users.id").
		Where("memberships.community_id = ? AND memberships.active = ?", communityID, true).
		Where("LOWER(users.username) IN ?", lowered).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(rows))
	for _, r := range rows {
		byName[strings.ToLower(r.Username)] = r.ID
	}
	ids := make([]string, 0, len(rows))
	for _, name := range lowered {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return uniqueInOrder(ids), nil
}

// Moderators returns active moderators and admins, oldest membership first
func (d *directory) Moderators(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.Membership{}).
		Where("community_id = ? AND active = ? AND role IN ?", communityID, true,
			[]string{models.RoleModerator, models.RoleAdmin}).
		Order("created_at, id").
		Pluck("member_id", &ids).Error
	return ids, err
}

// Followers returns users following userID, oldest follow first
func (d *directory) Followers(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Order("created_at, id").
		Pluck("follower_id", &ids).Error
	return ids, err
}

// TagFollowers returns users following any of tags in the community
func (d *directory) TagFollowers(ctx context.Context, communityID string, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.TagFollow{}).
		Where("community_id = ? AND tag IN ?", communityID, tags).
		Order("created_at, id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return uniqueInOrder(ids), nil
}

// Commenters returns owners of live comments on an activity, earliest first
func (d *directory) Commenters(ctx context.Context, activityID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.Comment{}).
		Where("activity_id = ? AND deleted_at IS NULL", activityID).
		Order("created_at, id").
		Pluck("owner_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return uniqueInOrder(ids), nil
}

// Attendees returns users attending an event
func (d *directory) Attendees(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.EventAttendee{}).
		Where("event_id = ?", eventID).
		Order("created_at, id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// BlockedBy returns the subset of userIDs who have blocked actorID
func (d *directory) BlockedBy(ctx context.Context, actorID string, userIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if actorID == "" || len(userIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ? AND blocker_id IN ?", actorID, userIDs).
		Pluck("blocker_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
