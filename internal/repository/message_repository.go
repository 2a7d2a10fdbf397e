package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
)

var (
	ErrMessageNotFound = errors.New("message not found")
)

// MessageRepository stores private messages between members
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetMessages(ctx context.Context, ids []string) ([]*models.Message, error)
	// MarkRead sets read_at for an unread message addressed to recipientID.
	// Returns false when it was already read.
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
	ListReceived(ctx context.Context, communityID, recipientID string, limit, offset int) ([]*models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Preload("Sender").Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) GetMessages(ctx context.Context, ids []string) ([]*models.Message, error) {
	var msgs []*models.Message
	if len(ids) == 0 {
		return msgs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", time.Now().UTC())
	return result.RowsAffected > 0, result.Error
}

func (r *messageRepository) ListReceived(ctx context.Context, communityID, recipientID string, limit, offset int) ([]*models.Message, error) {
	var msgs []*models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("community_id = ? AND recipient_id = ?", communityID, recipientID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	return msgs, err
}
