package social

import (
	"context"
	"strings"
	"time"

	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"gorm.io/gorm"
)

// ActivityInput is the editable content of an activity
type ActivityInput struct {
	Kind        string     `json:"kind" binding:"omitempty,oneof=post event poll photo"`
	Title       string     `json:"title" binding:"required,max=300"`
	Description string     `json:"description" binding:"max=10000"`
	URL         string     `json:"url" binding:"omitempty,url,max=500"`
	Image       string     `json:"image" binding:"omitempty,url,max=500"`
	Location    string     `json:"location" binding:"max=300"`
	StartsAt    *time.Time `json:"starts_at"`
	Answers     []string   `json:"answers" binding:"max=12,dive,required,max=200"`
}

func (in *ActivityInput) validate(kind string) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apierrors.ValidationError("title", "title is required")
	}
	switch kind {
	case models.ActivityPoll:
		if len(in.Answers) < 2 {
			return apierrors.ValidationError("answers", "a poll needs at least two answers")
		}
	case models.ActivityEvent:
		if in.StartsAt == nil {
			return apierrors.ValidationError("starts_at", "an event needs a start time")
		}
	case models.ActivityPhoto:
		if in.Image == "" {
			return apierrors.ValidationError("image", "a photo needs an image")
		}
	}
	return nil
}

// CreateActivity publishes an activity and notifies mentioned users,
// moderators, the owner's followers and tag followers
func (s *Service) CreateActivity(ctx context.Context, actor Actor, in ActivityInput) (*models.Activity, error) {
	if in.Kind == "" {
		in.Kind = models.ActivityPost
	}
	if !models.IsActivityKind(in.Kind) {
		return nil, apierrors.ValidationError("kind", "unknown activity kind")
	}
	if err := in.validate(in.Kind); err != nil {
		return nil, err
	}

	activity := &models.Activity{
		Kind:        in.Kind,
		OwnerID:     actor.User.ID,
		CommunityID: actor.Community.ID,
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		Image:       in.Image,
		Location:    in.Location,
		StartsAt:    in.StartsAt,
		Owner:       actor.User,
	}

	err := s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewActivityRepository(tx).CreateActivity(ctx, activity, in.Answers); err != nil {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromActivity(activity), notifications.EventCreated)
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// GetActivity returns a live activity and its comments. Viewing it marks
// the viewer's notifications about it read.
func (s *Service) GetActivity(ctx context.Context, actor Actor, id string) (*models.Activity, []*models.Comment, error) {
	activity, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return nil, nil, mapError(err)
	}
	comments, err := repository.NewCommentRepository(s.db).ListComments(ctx, activity.ID)
	if err != nil {
		return nil, nil, err
	}
	ref := notifications.FromActivity(activity).Ref()
	if _, err := s.inbox.MarkSubjectRead(ctx, actor.Community.ID, actor.User.ID, ref); err != nil {
		return nil, nil, err
	}
	return activity, comments, nil
}

// ListActivities returns the community's live activities, newest first
func (s *Service) ListActivities(ctx context.Context, actor Actor, limit, offset int) ([]*models.Activity, error) {
	return repository.NewActivityRepository(s.db).ListActivities(ctx, actor.Community.ID, limit, offset)
}

// UpdateActivity edits an activity. Owners and moderators may edit; a
// moderator's edit notifies the owner.
func (s *Service) UpdateActivity(ctx context.Context, actor Actor, id string, in ActivityInput) (*models.Activity, error) {
	activities := repository.NewActivityRepository(s.db)
	activity, err := activities.GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return nil, mapError(err)
	}
	if !actor.canManage(activity.OwnerID) {
		return nil, apierrors.Forbidden("you cannot edit this activity")
	}
	if err := in.validate(""); err != nil {
		return nil, err
	}

	nctx := actor.notifyContext()
	nctx.ContentChanged = activity.Title != in.Title || activity.Description != in.Description

	activity.Title = in.Title
	activity.Description = in.Description
	activity.URL = in.URL
	activity.Image = in.Image
	activity.Location = in.Location
	if in.StartsAt != nil {
		activity.StartsAt = in.StartsAt
	}
	if actor.User.ID != activity.OwnerID {
		activity.EditorID = actor.User.ID
	}

	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewActivityRepository(tx).UpdateActivity(ctx, activity); err != nil {
			return err
		}
		return w.notify(nctx, notifications.FromActivity(activity), notifications.EventUpdated)
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// DeleteActivity removes an activity. The owner's delete is permanent. A
// moderator's delete hides the activity, purges its notifications and
// tells the owner.
func (s *Service) DeleteActivity(ctx context.Context, actor Actor, id string) error {
	activity, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return mapError(err)
	}
	if actor.User.ID == activity.OwnerID {
		return s.hardDeleteActivity(ctx, activity)
	}
	if !actor.IsModerator() {
		return apierrors.Forbidden("you cannot delete this activity")
	}

	return s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		activities := repository.NewActivityRepository(tx)
		if err := activities.SoftDeleteActivity(ctx, activity.ID); err != nil {
			return err
		}
		var commentIDs []string
		if err := tx.WithContext(ctx).Model(&models.Comment{}).
			Where("activity_id = ?", activity.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		subject := notifications.FromActivity(activity)
		if err := w.purge(append(commentRefs(commentIDs), subject.Ref())...); err != nil {
			return err
		}
		return w.notify(actor.notifyContext(), subject, notifications.EventDeleted)
	})
}

// PurgeActivity permanently deletes an activity, live or soft deleted.
// Moderators only.
func (s *Service) PurgeActivity(ctx context.Context, actor Actor, id string) error {
	if !actor.IsModerator() {
		return apierrors.Forbidden("only moderators can purge activities")
	}
	activity, err := repository.NewActivityRepository(s.db).GetAnyActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return mapError(err)
	}
	return s.hardDeleteActivity(ctx, activity)
}

func (s *Service) hardDeleteActivity(ctx context.Context, activity *models.Activity) error {
	return s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		commentIDs, err := repository.NewActivityRepository(tx).HardDeleteActivity(ctx, activity.ID)
		if err != nil {
			return err
		}
		refs := append(commentRefs(commentIDs), notifications.FromActivity(activity).Ref())
		return w.purge(refs...)
	})
}

func commentRefs(ids []string) []notifications.SubjectRef {
	refs := make([]notifications.SubjectRef, 0, len(ids)+1)
	for _, id := range ids {
		refs = append(refs, notifications.SubjectRef{Kind: notifications.KindComment, ID: id})
	}
	return refs
}

// LikeActivity records a like and notifies the owner. Liking twice is a no-op.
func (s *Service) LikeActivity(ctx context.Context, actor Actor, id string) (bool, error) {
	activity, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return false, mapError(err)
	}
	if activity.OwnerID == actor.User.ID {
		return false, apierrors.Forbidden("you cannot like your own activity")
	}
	return s.like(ctx, actor, notifications.FromActivity(activity))
}

// FlagActivity reports an activity to the moderators
func (s *Service) FlagActivity(ctx context.Context, actor Actor, id, reason string) (bool, error) {
	activity, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return false, mapError(err)
	}
	if activity.OwnerID == actor.User.ID {
		return false, apierrors.Forbidden("you cannot flag your own activity")
	}
	return s.flag(ctx, actor, notifications.FromActivity(activity), reason)
}

func (s *Service) like(ctx context.Context, actor Actor, subject notifications.Subject) (bool, error) {
	var created bool
	err := s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		var err error
		created, err = repository.NewReactionRepository(tx).Like(ctx, &models.Like{
			UserID:      actor.User.ID,
			RecipientID: subject.OwnerID(),
			CommunityID: actor.Community.ID,
			SubjectKind: string(subject.Ref().Kind),
			SubjectID:   subject.Ref().ID,
		})
		if err != nil || !created {
			return err
		}
		return w.notify(actor.notifyContext(), subject, notifications.EventLiked)
	})
	return created, err
}

func (s *Service) flag(ctx context.Context, actor Actor, subject notifications.Subject, reason string) (bool, error) {
	switch reason {
	case "", models.FlagSpam, models.FlagAbuse, models.FlagRules, models.FlagIllegal, models.FlagPersonal:
	default:
		return false, apierrors.ValidationError("reason", "unknown flag reason")
	}
	var created bool
	err := s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		var err error
		created, err = repository.NewReactionRepository(tx).Flag(ctx, &models.Flag{
			UserID:      actor.User.ID,
			CommunityID: actor.Community.ID,
			SubjectKind: string(subject.Ref().Kind),
			SubjectID:   subject.Ref().ID,
			Reason:      reason,
		})
		if err != nil || !created {
			return err
		}
		return w.notify(actor.notifyContext(), subject, notifications.EventFlagged)
	})
	return created, err
}

// ReshareActivity republishes someone else's activity under the actor and
// notifies the original owner
func (s *Service) ReshareActivity(ctx context.Context, actor Actor, id string) (*models.Activity, error) {
	original, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return nil, mapError(err)
	}
	if original.ReshareOfID != nil {
		return nil, apierrors.BadRequest("reshare the original activity instead")
	}
	if original.OwnerID == actor.User.ID {
		return nil, apierrors.Forbidden("you cannot reshare your own activity")
	}

	reshare := &models.Activity{
		Kind:        original.Kind,
		OwnerID:     actor.User.ID,
		CommunityID: actor.Community.ID,
		Title:       original.Title,
		Description: original.Description,
		URL:         original.URL,
		Image:       original.Image,
		Location:    original.Location,
		StartsAt:    original.StartsAt,
		ReshareOfID: &original.ID,
	}
	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewActivityRepository(tx).CreateActivity(ctx, reshare, nil); err != nil {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromActivity(original), notifications.EventReshared)
	})
	if err != nil {
		return nil, err
	}
	return reshare, nil
}

// Vote records the actor's answer on a poll and notifies the poll owner
func (s *Service) Vote(ctx context.Context, actor Actor, pollID, answerID string) (bool, error) {
	poll, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, pollID)
	if err != nil {
		return false, mapError(err)
	}
	if poll.Kind != models.ActivityPoll {
		return false, apierrors.BadRequest("activity is not a poll")
	}
	var created bool
	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		var err error
		created, err = repository.NewActivityRepository(tx).Vote(ctx, poll.ID, answerID, actor.User.ID)
		if err != nil || !created {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromActivity(poll), notifications.EventVoted)
	})
	return created, err
}

// Attend registers the actor for an event and notifies the event owner
func (s *Service) Attend(ctx context.Context, actor Actor, eventID string) (bool, error) {
	event, err := s.liveEvent(ctx, actor, eventID)
	if err != nil {
		return false, err
	}
	if event.Canceled != nil {
		return false, apierrors.BadRequest("event is canceled")
	}
	var created bool
	err = s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		var err error
		created, err = repository.NewActivityRepository(tx).Attend(ctx, event.ID, actor.User.ID)
		if err != nil || !created {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromActivity(event), notifications.EventAttended)
	})
	return created, err
}

// CancelEvent cancels an event and notifies its attendees and owner
func (s *Service) CancelEvent(ctx context.Context, actor Actor, eventID string) error {
	event, err := s.liveEvent(ctx, actor, eventID)
	if err != nil {
		return err
	}
	if !actor.canManage(event.OwnerID) {
		return apierrors.Forbidden("you cannot cancel this event")
	}
	return s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		changed, err := repository.NewActivityRepository(tx).CancelEvent(ctx, event.ID)
		if err != nil || !changed {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromActivity(event), notifications.EventCanceled)
	})
}

func (s *Service) liveEvent(ctx context.Context, actor Actor, id string) (*models.Activity, error) {
	event, err := repository.NewActivityRepository(s.db).GetActivity(ctx, actor.Community.ID, id)
	if err != nil {
		return nil, mapError(err)
	}
	if event.Kind != models.ActivityEvent {
		return nil, apierrors.BadRequest("activity is not an event")
	}
	return event, nil
}
