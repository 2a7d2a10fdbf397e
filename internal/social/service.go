package social

import (
	"context"
	stderrors "errors"

	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor is the authenticated user acting inside a community
type Actor struct {
	User       *models.User
	Community  *models.Community
	Membership *models.Membership
}

// IsModerator reports whether the actor moderates the community
func (a Actor) IsModerator() bool {
	return a.Membership != nil && a.Membership.IsModerator()
}

func (a Actor) canManage(ownerID string) bool {
	return a.User.ID == ownerID || a.IsModerator()
}

func (a Actor) notifyContext() notifications.Context {
	return notifications.Context{CommunityID: a.Community.ID, Actor: a.User}
}

// Service runs community actions and the notification fan-outs they trigger.
// Every write commits together with its notifications; delivery happens
// after commit.
type Service struct {
	db       *gorm.DB
	notifier *notifications.Notifier
	inbox    *notifications.Inbox
}

// NewService creates the service and registers the message read hook
func NewService(db *gorm.DB, notifier *notifications.Notifier, inbox *notifications.Inbox) *Service {
	s := &Service{db: db, notifier: notifier, inbox: inbox}
	inbox.OnRead(notifications.KindMessage, s.onMessageNotificationRead)
	return s
}

// pending is a committed fan-out waiting for delivery
type pending struct {
	nctx    notifications.Context
	subject notifications.Subject
	rows    []*models.Notification
}

// writeTx collects the fan-outs and purges of one transaction so their
// side effects run only after commit
type writeTx struct {
	s      *Service
	ctx    context.Context
	tx     *gorm.DB
	queued []pending
	purged []*notifications.Purge
}

// notify creates the notifications for event inside the transaction
func (w *writeTx) notify(nctx notifications.Context, subject notifications.Subject, event notifications.Event) error {
	rows, err := w.s.notifier.Create(w.ctx, w.tx, nctx, subject, event)
	if err != nil {
		return err
	}
	w.queued = append(w.queued, pending{nctx: nctx, subject: subject, rows: rows})
	return nil
}

// purge deletes the notifications about refs inside the transaction
func (w *writeTx) purge(refs ...notifications.SubjectRef) error {
	for _, ref := range refs {
		p, err := w.s.inbox.PurgeSubject(w.ctx, w.tx, ref)
		if err != nil {
			return err
		}
		w.purged = append(w.purged, p)
	}
	return nil
}

// write runs fn in a transaction. After commit it drops the unread counts
// cached for purged inboxes and dispatches every queued fan-out.
func (s *Service) write(ctx context.Context, fn func(tx *gorm.DB, w *writeTx) error) error {
	var w *writeTx
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w = &writeTx{s: s, ctx: ctx, tx: tx}
		return fn(tx, w)
	})
	if err != nil {
		return mapError(err)
	}
	for _, p := range w.purged {
		s.inbox.InvalidatePurge(ctx, p)
	}
	for _, p := range w.queued {
		s.notifier.Dispatch(ctx, p.nctx, p.subject, p.rows)
	}
	return nil
}

func (s *Service) onMessageNotificationRead(ctx context.Context, n *models.Notification) error {
	_, err := repository.NewMessageRepository(s.db).MarkRead(ctx, n.RecipientID, n.SubjectID)
	return err
}

// mapError turns repository sentinels into API errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierrors.AsAPIError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, repository.ErrActivityNotFound):
		return apierrors.NotFound("activity")
	case stderrors.Is(err, repository.ErrCommentNotFound):
		return apierrors.NotFound("comment")
	case stderrors.Is(err, repository.ErrMessageNotFound):
		return apierrors.NotFound("message")
	case stderrors.Is(err, repository.ErrUserNotFound):
		return apierrors.NotFound("user")
	case stderrors.Is(err, repository.ErrNotificationNotFound):
		return apierrors.NotFound("notification")
	case stderrors.Is(err, repository.ErrPollAnswerNotFound):
		return apierrors.ValidationError("answer_id", "answer does not belong to this poll")
	case stderrors.Is(err, repository.ErrInvalidInput):
		return apierrors.BadRequest("invalid input")
	}
	var unsupported *notifications.ErrUnsupportedEvent
	if stderrors.As(err, &unsupported) {
		logger.Log.Error("Fan-out has no policy", zap.Error(err))
	}
	return err
}
