package repository

import (
	"context"
	"errors"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository persists inbox state. Lookups by id are always
// restricted to the recipient, so another user's notification reads as
// not found.
type NotificationRepository interface {
	notifications.Store
	GetNotification(ctx context.Context, recipientID, id string) (*models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// inbox scopes a query to what the recipient sees in a community: rows
// created there plus rows with a global verb
func (r *notificationRepository) inbox(ctx context.Context, communityID, recipientID string, globalVerbs []string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if len(globalVerbs) > 0 {
		q = q.Where("(community_id = ? OR verb IN ?)", communityID, globalVerbs)
	} else {
		q = q.Where("community_id = ?", communityID)
	}
	return q.Where("actor_id NOT IN (?)",
		r.db.Model(&models.Block{}).Select("blocked_id").Where("blocker_id = ?", recipientID))
}

// List returns a page of the inbox, unread first then newest first
func (r *notificationRepository) List(ctx context.Context, q notifications.ListQuery) ([]*models.Notification, int64, error) {
	var total int64
	if err := r.inbox(ctx, q.CommunityID, q.RecipientID, q.GlobalVerbs).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*models.Notification
	err := r.inbox(ctx, q.CommunityID, q.RecipientID, q.GlobalVerbs).
		Preload("Actor").
		Order("is_read ASC, created_at DESC, id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UnreadCount counts unread notifications in the inbox
func (r *notificationRepository) UnreadCount(ctx context.Context, communityID, recipientID string, globalVerbs []string) (int64, error) {
	var count int64
	err := r.inbox(ctx, communityID, recipientID, globalVerbs).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

// GetNotification gets one of the recipient's notifications
func (r *notificationRepository) GetNotification(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead flips a notification to read. Already read notifications are
// returned unchanged.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	n, err := r.GetNotification(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	err = r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true).Error
	if err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead flips every unread notification in the inbox and returns them
func (r *notificationRepository) MarkAllRead(ctx context.Context, communityID, recipientID string, globalVerbs []string) ([]*models.Notification, error) {
	var unread []*models.Notification
	err := r.inbox(ctx, communityID, recipientID, globalVerbs).
		Where("is_read = ?", false).
		Order("created_at, id").
		Find(&unread).Error
	if err != nil || len(unread) == 0 {
		return nil, err
	}

	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
		n.IsRead = true
	}
	err = r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND id IN ?", recipientID, ids).
		Update("is_read", true).Error
	if err != nil {
		return nil, err
	}
	return unread, nil
}

// MarkSubjectRead flips the recipient's unread notifications about a subject
func (r *notificationRepository) MarkSubjectRead(ctx context.Context, recipientID, subjectKind, subjectID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND subject_kind = ? AND subject_id = ? AND is_read = ?",
			recipientID, subjectKind, subjectID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// Delete removes one of the recipient's notifications
func (r *notificationRepository) Delete(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	n, err := r.GetNotification(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{}).Error
	if err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteAll removes every notification in the inbox
func (r *notificationRepository) DeleteAll(ctx context.Context, communityID, recipientID string, globalVerbs []string) (int64, error) {
	var ids []string
	if err := r.inbox(ctx, communityID, recipientID, globalVerbs).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("recipient_id = ? AND id IN ?", recipientID, ids).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
