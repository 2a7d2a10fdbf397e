package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	online    map[string]bool // community:user
	published []*websocket.Message
}

func (p *fakePublisher) IsOnline(communityID, userID string) bool {
	return p.online[communityID+":"+userID]
}

func (p *fakePublisher) Publish(_, _ string, msg *websocket.Message) bool {
	p.published = append(p.published, msg)
	return true
}

type fakeCounter struct {
	unread int64
	err    error
}

func (c fakeCounter) UnreadCount(context.Context, string, string) (int64, error) {
	return c.unread, c.err
}

func liveJob() *Job {
	return &Job{
		ID:           "job-1",
		Notification: testNotification("n1"),
		Message:      notifications.Message{Header: "Bob has mentioned you in their post", Body: "Film night", URL: "/activities/a1"},
	}
}

func TestLiveAdapterSkipsOfflineRecipients(t *testing.T) {
	publisher := &fakePublisher{}
	adapter := NewLiveAdapter(publisher, fakeCounter{unread: 1})

	require.NoError(t, adapter.Deliver(context.Background(), liveJob()))
	assert.Empty(t, publisher.published)
}

func TestLiveAdapterPublishesNotificationThenCount(t *testing.T) {
	publisher := &fakePublisher{online: map[string]bool{"community-1:user-1": true}}
	adapter := NewLiveAdapter(publisher, fakeCounter{unread: 4})

	require.NoError(t, adapter.Deliver(context.Background(), liveJob()))
	require.Len(t, publisher.published, 2)

	assert.Equal(t, websocket.MessageTypeNotification, publisher.published[0].Type)
	payload := publisher.published[0].Payload.(websocket.NotificationPayload)
	assert.Equal(t, "n1", payload.ID)
	assert.Equal(t, "Bob has mentioned you in their post", payload.Header)
	assert.Equal(t, "/activities/a1", payload.URL)

	assert.Equal(t, websocket.MessageTypeNotificationCount, publisher.published[1].Type)
	assert.Equal(t, websocket.CountPayload{Unread: 4}, publisher.published[1].Payload)
}

func TestLiveAdapterCountFailureIsNotRetried(t *testing.T) {
	publisher := &fakePublisher{online: map[string]bool{"community-1:user-1": true}}
	adapter := NewLiveAdapter(publisher, fakeCounter{err: errors.New("db down")})

	err := adapter.Deliver(context.Background(), liveJob())
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Len(t, publisher.published, 1)
}
