package social

import (
	"context"
	"strings"

	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"gorm.io/gorm"
)

// CommentInput is the body of a new or edited comment
type CommentInput struct {
	Content  string `json:"content" binding:"required,max=5000"`
	ParentID string `json:"parent_id"`
}

// CreateComment adds a comment to an activity and notifies mentioned
// users, the activity owner, the replied-to user, earlier commenters and
// the commenter's followers
func (s *Service) CreateComment(ctx context.Context, actor Actor, activityID string, in CommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apierrors.ValidationError("content", "content is required")
	}
	activity, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, activityID)
	if err != nil {
		return nil, mapError(err)
	}

	comments := repository.NewCommentRepository(s.db)
	var parent *models.Comment
	if in.ParentID != "" {
		parent, err = comments.GetComment(ctx, actor.Community.ID, in.ParentID)
		if err != nil || parent.ActivityID != activity.ID {
			return nil, apierrors.ValidationError("parent_id", "parent comment not found on this activity")
		}
	}

	comment := &models.Comment{
		OwnerID:     actor.User.ID,
		CommunityID: actor.Community.ID,
		ActivityID:  activity.ID,
		Content:     content,
		Owner:       actor.User,
		Activity:    activity,
		Parent:      parent,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}

	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewCommentRepository(tx).CreateComment(ctx, comment); err != nil {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromComment(comment, activity, parent), notifications.EventCreated)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment edits a comment. Mentions are only notified again when the
// content changed.
func (s *Service) UpdateComment(ctx context.Context, actor Actor, id string, in CommentInput) (*models.Comment, error) {
	comment, err := repository.NewCommentRepository(s.db).GetComment(ctx, actor.Community.ID, id)
	if err != nil {
		return nil, mapError(err)
	}
	if !actor.canManage(comment.OwnerID) {
		return nil, apierrors.Forbidden("you cannot edit this comment")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apierrors.ValidationError("content", "content is required")
	}

	nctx := actor.notifyContext()
	nctx.ContentChanged = comment.Content != content
	comment.Content = content
	if actor.User.ID != comment.OwnerID {
		comment.EditorID = actor.User.ID
	}

	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewCommentRepository(tx).UpdateComment(ctx, comment); err != nil {
			return err
		}
		return w.notify(nctx, notifications.FromComment(comment, comment.Activity, comment.Parent), notifications.EventUpdated)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment. The owner's delete is permanent; a
// moderator's delete hides it and tells the owner.
func (s *Service) DeleteComment(ctx context.Context, actor Actor, id string) error {
	comment, err := repository.NewCommentRepository(s.db).GetComment(ctx, actor.Community.ID, id)
	if err != nil {
		return mapError(err)
	}
	subject := notifications.FromComment(comment, comment.Activity, comment.Parent)

	if actor.User.ID == comment.OwnerID {
		return s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
			if err := repository.NewCommentRepository(tx).HardDeleteComment(ctx, comment.ID); err != nil {
				return err
			}
			return w.purge(subject.Ref())
		})
	}
	if !actor.IsModerator() {
		return apierrors.Forbidden("you cannot delete this comment")
	}
	return s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewCommentRepository(tx).SoftDeleteComment(ctx, comment.ID); err != nil {
			return err
		}
		if err := w.purge(subject.Ref()); err != nil {
			return err
		}
		return w.notify(actor.notifyContext(), subject, notifications.EventDeleted)
	})
}

// LikeComment records a like and notifies the comment owner
func (s *Service) LikeComment(ctx context.Context, actor Actor, id string) (bool, error) {
	comment, err := repository.NewCommentRepository(s.db).GetComment(ctx, actor.Community.ID, id)
	if err != nil {
		return false, mapError(err)
	}
	if comment.OwnerID == actor.User.ID {
		return false, apierrors.Forbidden("you cannot like your own comment")
	}
	return s.like(ctx, actor, notifications.FromComment(comment, comment.Activity, comment.Parent))
}

// FlagComment reports a comment to the moderators
func (s *Service) FlagComment(ctx context.Context, actor Actor, id, reason string) (bool, error) {
	comment, err := repository.NewCommentRepository(s.db).GetComment(ctx, actor.Community.ID, id)
	if err != nil {
		return false, mapError(err)
	}
	if comment.OwnerID == actor.User.ID {
		return false, apierrors.Forbidden("you cannot flag your own comment")
	}
	return s.flag(ctx, actor, notifications.FromComment(comment, comment.Activity, comment.Parent), reason)
}
