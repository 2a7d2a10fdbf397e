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

// MessageInput is a new private message
type MessageInput struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	Message     string `json:"message" binding:"required,max=5000"`
}

// SendMessage sends a private message to another member and notifies them
func (s *Service) SendMessage(ctx context.Context, actor Actor, in MessageInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, apierrors.ValidationError("message", "message is required")
	}
	if in.RecipientID == actor.User.ID {
		return nil, apierrors.ValidationError("recipient_id", "you cannot message yourself")
	}
	if _, err := repository.NewCommunityRepository(s.db).GetMembership(ctx, actor.Community.ID, in.RecipientID); err != nil {
		return nil, apierrors.ValidationError("recipient_id", "recipient is not a member of this community")
	}

	msg := &models.Message{
		SenderID:    actor.User.ID,
		RecipientID: in.RecipientID,
		CommunityID: actor.Community.ID,
		Message:     text,
		Sender:      actor.User,
	}
	err := s.write(ctx, func(tx *gorm.DB, w *writeTx) error {
		if err := repository.NewMessageRepository(tx).CreateMessage(ctx, msg); err != nil {
			return err
		}
		return w.notify(actor.notifyContext(), notifications.FromMessage(msg), notifications.EventMessaged)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the actor's received messages, newest first
func (s *Service) ListMessages(ctx context.Context, actor Actor, limit, offset int) ([]*models.Message, error) {
	return repository.NewMessageRepository(s.db).ListReceived(ctx, actor.Community.ID, actor.User.ID, limit, offset)
}

// ReadMessage marks a received message read together with the
// notifications about it. Other users' messages read as not found.
func (s *Service) ReadMessage(ctx context.Context, actor Actor, id string) (*models.Message, error) {
	messages := repository.NewMessageRepository(s.db)
	msg, err := messages.GetMessage(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if msg.RecipientID != actor.User.ID || msg.CommunityID != actor.Community.ID {
		return nil, apierrors.NotFound("message")
	}
	if _, err := messages.MarkRead(ctx, actor.User.ID, msg.ID); err != nil {
		return nil, err
	}
	ref := notifications.FromMessage(msg).Ref()
	if _, err := s.inbox.MarkSubjectRead(ctx, actor.Community.ID, actor.User.ID, ref); err != nil {
		return nil, err
	}
	return messages.GetMessage(ctx, msg.ID)
}
