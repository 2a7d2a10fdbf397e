package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/Butonix/localhub/internal/email"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrefs struct {
	email map[string]bool // verb -> enabled
	push  bool
}

func (p fakePrefs) EmailEnabled(_, verb string) bool { return p.email[verb] }
func (p fakePrefs) PushEnabled(string) bool          { return p.push }

type fakeStore struct {
	subs    []*models.PushSubscription
	deleted []string
}

func (s *fakeStore) ListForUser(context.Context, string, string) ([]*models.PushSubscription, error) {
	return s.subs, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeSender struct {
	status   map[string]int // endpoint -> status
	payloads [][]byte
}

func (s *fakeSender) Send(_ context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	s.payloads = append(s.payloads, payload)
	return s.status[sub.Endpoint], nil
}

func pushJob() *Job {
	return &Job{
		ID:           "job-1",
		Notification: testNotification("n1"),
		Message:      notifications.Message{Header: "Bob has mentioned you in their post", Body: "Film night", URL: "/activities/a1"},
	}
}

func TestWebPushPrunesGoneSubscriptions(t *testing.T) {
	store := &fakeStore{subs: []*models.PushSubscription{
		{ID: "gone", Endpoint: "https://push.example/gone"},
		{ID: "live", Endpoint: "https://push.example/live"},
	}}
	sender := &fakeSender{status: map[string]int{
		"https://push.example/gone": http.StatusGone,
		"https://push.example/live": http.StatusCreated,
	}}

	err := NewWebPushAdapter(sender, store, fakePrefs{push: true}).Deliver(context.Background(), pushJob())
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, store.deleted)
	require.Len(t, sender.payloads, 2)

	var payload pushPayload
	require.NoError(t, json.Unmarshal(sender.payloads[1], &payload))
	assert.Equal(t, "Bob has mentioned you in their post", payload.Header)
	assert.Equal(t, "/activities/a1", payload.URL)
}

func TestWebPushStatusHandling(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		wantErr   bool
		permanent bool
	}{
		{"created", http.StatusCreated, false, false},
		{"not found prunes", http.StatusNotFound, false, false},
		{"rate limited retries", http.StatusTooManyRequests, true, false},
		{"server error retries", http.StatusBadGateway, true, false},
		{"bad request is permanent", http.StatusBadRequest, true, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{subs: []*models.PushSubscription{{ID: "s1", Endpoint: "https://push.example/s1"}}}
			sender := &fakeSender{status: map[string]int{"https://push.example/s1": tc.status}}

			err := NewWebPushAdapter(sender, store, nil).Deliver(context.Background(), pushJob())
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.permanent, errors.Is(err, ErrPermanent))
		})
	}
}

func TestWebPushRetryResendsOnlyFailedSubscriptions(t *testing.T) {
	store := &fakeStore{subs: []*models.PushSubscription{
		{ID: "phone", Endpoint: "https://push.example/phone"},
		{ID: "laptop", Endpoint: "https://push.example/laptop"},
	}}
	sender := &fakeSender{status: map[string]int{
		"https://push.example/phone":  http.StatusCreated,
		"https://push.example/laptop": http.StatusBadGateway,
	}}
	adapter := NewWebPushAdapter(sender, store, nil)
	job := pushJob()

	require.Error(t, adapter.Deliver(context.Background(), job))
	assert.True(t, job.Delivered("webpush:phone"))
	assert.False(t, job.Delivered("webpush:laptop"))

	sender.status["https://push.example/laptop"] = http.StatusCreated
	require.NoError(t, adapter.Deliver(context.Background(), job))

	assert.Len(t, sender.payloads, 3, "the phone is not pushed twice")
	assert.True(t, job.Delivered("webpush:laptop"))
}

func TestWebPushRespectsPreference(t *testing.T) {
	store := &fakeStore{subs: []*models.PushSubscription{{ID: "s1", Endpoint: "https://push.example/s1"}}}
	sender := &fakeSender{}

	require.NoError(t, NewWebPushAdapter(sender, store, fakePrefs{push: false}).Deliver(context.Background(), pushJob()))
	assert.Empty(t, sender.payloads)
}

type fakeMailer struct {
	sent []email.Email
}

func (m *fakeMailer) Send(_ context.Context, msg email.Email) error {
	m.sent = append(m.sent, msg)
	return nil
}

type fakeDirectory struct {
	users map[string]*models.User
}

func (d fakeDirectory) GetUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (d fakeDirectory) GetCommunity(context.Context, string) (*models.Community, error) {
	return &models.Community{Name: "Local Test", Domain: "local.test"}, nil
}

func TestEmailOnlyForOptedInVerbs(t *testing.T) {
	mailer := &fakeMailer{}
	dir := fakeDirectory{users: map[string]*models.User{"user-1": {ID: "user-1", Name: "Alice", Email: "alice@example.com"}}}
	adapter := NewEmailAdapter(mailer, fakePrefs{email: map[string]bool{notifications.VerbReply: true}}, dir, "https://fallback.test")

	require.NoError(t, adapter.Deliver(context.Background(), pushJob()))
	assert.Empty(t, mailer.sent, "mention is not opted in")

	job := pushJob()
	job.Notification.Verb = notifications.VerbReply
	require.NoError(t, adapter.Deliver(context.Background(), job))
	require.Len(t, mailer.sent, 1)

	sent := mailer.sent[0]
	assert.Equal(t, "alice@example.com", sent.To)
	assert.Contains(t, sent.TextBody, "Hi Alice")
	assert.Contains(t, sent.TextBody, "https://local.test/activities/a1")
	assert.Contains(t, sent.HTMLBody, "Local Test")
}

func TestEmailUnknownRecipientIsPermanent(t *testing.T) {
	adapter := NewEmailAdapter(&fakeMailer{}, fakePrefs{email: map[string]bool{notifications.VerbMention: true}},
		fakeDirectory{}, "")
	err := adapter.Deliver(context.Background(), pushJob())
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://a.test/x", absoluteURL("https://a.test", "/x"))
	assert.Equal(t, "https://b.test/x", absoluteURL("https://a.test", "https://b.test/x"))
	assert.Equal(t, "/x", absoluteURL("", "/x"))
}

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestEventAdapterKeysByRecipient(t *testing.T) {
	writer := &recordingWriter{}
	adapter := NewEventAdapter(writer)

	require.NoError(t, adapter.Deliver(context.Background(), pushJob()))
	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "user-1", string(writer.msgs[0].Key))

	var event NotificationEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &event))
	assert.Equal(t, "n1", event.ID)
	assert.Equal(t, notifications.VerbMention, event.Verb)
	assert.Equal(t, "Film night", event.Body)

	require.NoError(t, adapter.Close())
	assert.True(t, writer.closed)
}

func TestNewKafkaWriterDefaultsTopic(t *testing.T) {
	w := NewKafkaWriter(" broker-1:9092, ,broker-2:9092", "")
	assert.Equal(t, TopicNotificationCreated, w.Topic)
	assert.NotNil(t, w.Addr)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}
