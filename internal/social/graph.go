package social

import (
	"context"

	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/util"
	"gorm.io/gorm"
)

// FollowUser makes the actor follow another user and notifies them
func (s *Service) FollowUser(ctx context.Context, actor Actor, userID string) (bool, error) {
	if userID == actor.User.ID {
		return false, apierrors.BadRequest("you cannot follow yourself")
	}
	target, err := repository.NewUserRepository(s.db).GetUser(ctx, userID)
	if err != nil {
		return false, mapError(err)
	}

	var created bool
	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		var err error
		created, err = repository.NewUserRepository(tx).CreateFollow(ctx, actor.User.ID, target.ID)
		if err != nil || !created {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromUser(target, actor.Community.ID), notifications.EventFollowed)
	})
	return created, err
}

// UnfollowUser removes a follow
func (s *Service) UnfollowUser(ctx context.Context, actor Actor, userID string) error {
	return repository.NewUserRepository(s.db).DeleteFollow(ctx, actor.User.ID, userID)
}

// FollowTag subscribes the actor to a hashtag in the community
func (s *Service) FollowTag(ctx context.Context, actor Actor, tag string) (string, bool, error) {
	normalized := util.NormalizeTag(tag)
	if normalized == "" {
		return "", false, apierrors.ValidationError("tag", "invalid tag")
	}
	created, err := repository.NewUserRepository(s.db).FollowTag(ctx, actor.User.ID, actor.Community.ID, normalized)
	if err != nil {
		return "", false, mapError(err)
	}
	return normalized, created, nil
}

// UnfollowTag removes a tag subscription
func (s *Service) UnfollowTag(ctx context.Context, actor Actor, tag string) error {
	return repository.NewUserRepository(s.db).UnfollowTag(ctx, actor.User.ID, actor.Community.ID, util.NormalizeTag(tag))
}

// BlockUser hides another user's notifications from the actor
func (s *Service) BlockUser(ctx context.Context, actor Actor, userID string) (bool, error) {
	if userID == actor.User.ID {
		return false, apierrors.BadRequest("you cannot block yourself")
	}
	if _, err := repository.NewUserRepository(s.db).GetUser(ctx, userID); err != nil {
		return false, mapError(err)
	}
	created, err := repository.NewUserRepository(s.db).Block(ctx, actor.User.ID, userID)
	if err != nil {
		return false, mapError(err)
	}
	if created {
		s.inbox.InvalidateUnread(ctx, actor.Community.ID, actor.User.ID)
	}
	return created, nil
}

// Join makes user an active member of community and notifies the
// moderators. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, user *models.User, community *models.Community) (*models.Membership, bool, error) {
	var (
		membership *models.Membership
		joined     bool
	)
	err := s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		var err error
		membership, joined, err = repository.NewCommunityRepository(tx).Join(ctx, community.ID, user.ID, models.RoleMember)
		if err != nil || !joined {
			return err
		}
		nctx := notifications.Context{CommunityID: community.ID, Actor: user}
		return w.notify(nctx, notifications.FromUser(user, community.ID), notifications.EventJoined)
	})
	if err != nil {
		return nil, false, err
	}
	return membership, joined, nil
}
