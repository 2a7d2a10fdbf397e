package repository

import (
	"context"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository stores browser web push endpoints
type PushSubscriptionRepository interface {
	// Subscribe stores a subscription. Returns false when an identical
	// subscription already exists.
	Subscribe(ctx context.Context, sub *models.PushSubscription) (bool, error)
	// Unsubscribe removes a subscription matched by endpoint and keys
	Unsubscribe(ctx context.Context, userID, communityID, endpoint, auth, p256dh string) (bool, error)
	ListForUser(ctx context.Context, userID, communityID string) ([]*models.PushSubscription, error)
	Delete(ctx context.Context, id string) error
}

type pushSubscriptionRepository struct {
	db *gorm.DB
}

// NewPushSubscriptionRepository creates a new push subscription repository
func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

func (r *pushSubscriptionRepository) Subscribe(ctx context.Context, sub *models.PushSubscription) (bool, error) {
	if sub == nil || sub.UserID == "" || sub.CommunityID == "" {
		return false, ErrInvalidInput
	}
	// concurrent identical subscribes race on the unique index; the loser
	// inserts nothing and reports the subscription as existing
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *pushSubscriptionRepository) Unsubscribe(ctx context.Context, userID, communityID, endpoint, auth, p256dh string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ? AND endpoint = ? AND auth = ? AND p256dh = ?",
			userID, communityID, endpoint, auth, p256dh).
		Delete(&models.PushSubscription{})
	return result.RowsAffected > 0, result.Error
}

func (r *pushSubscriptionRepository) ListForUser(ctx context.Context, userID, communityID string) ([]*models.PushSubscription, error) {
	var subs []*models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Order("created_at").
		Find(&subs).Error
	return subs, err
}

func (r *pushSubscriptionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PushSubscription{}).Error
}
