package delivery

import (
	"context"
	"fmt"

	"github.com/Butonix/localhub/internal/websocket"
)

// LivePublisher pushes messages to open inbox connections
type LivePublisher interface {
	IsOnline(communityID, userID string) bool
	Publish(communityID, userID string, msg *websocket.Message) bool
}

// UnreadCounter reports a recipient's unread count
type UnreadCounter interface {
	UnreadCount(ctx context.Context, communityID, recipientID string) (int64, error)
}

// LiveAdapter forwards new notifications and the updated badge count to
// recipients who have the inbox open. Offline recipients are skipped;
// they see the notification on their next page load.
type LiveAdapter struct {
	publisher LivePublisher
	counter   UnreadCounter
}

// NewLiveAdapter creates a live inbox adapter
func NewLiveAdapter(publisher LivePublisher, counter UnreadCounter) *LiveAdapter {
	return &LiveAdapter{publisher: publisher, counter: counter}
}

func (a *LiveAdapter) Name() string { return "live" }

func (a *LiveAdapter) Deliver(ctx context.Context, job *Job) error {
	n := job.Notification
	if !a.publisher.IsOnline(n.CommunityID, n.RecipientID) {
		return nil
	}

	a.publisher.Publish(n.CommunityID, n.RecipientID, websocket.NewMessage(websocket.MessageTypeNotification, websocket.NotificationPayload{
		ID:        n.ID,
		Verb:      n.Verb,
		Header:    job.Message.Header,
		Body:      job.Message.Body,
		URL:       job.Message.URL,
		CreatedAt: n.CreatedAt,
	}))

	unread, err := a.counter.UnreadCount(ctx, n.CommunityID, n.RecipientID)
	if err != nil {
		// The notification itself went out; a retry would show it twice
		return fmt.Errorf("%w: unread count: %v", ErrPermanent, err)
	}
	a.publisher.Publish(n.CommunityID, n.RecipientID, websocket.NewMessage(websocket.MessageTypeNotificationCount, websocket.CountPayload{Unread: unread}))
	return nil
}
