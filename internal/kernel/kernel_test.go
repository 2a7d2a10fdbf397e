package kernel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Butonix/localhub/internal/config"
	"github.com/Butonix/localhub/internal/email"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/social"
	"github.com/Butonix/localhub/internal/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Email
}

func (m *fakeMailer) Send(_ context.Context, msg email.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.To
	}
	return out
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("writer closed")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		JWTSecret:           []byte("test-secret"),
		SessionTTL:          time.Hour,
		DeliveryWorkers:     1,
		DeliveryBuffer:      16,
		DeliveryMaxAttempts: 1,
		PageSize:            20,
		GlobalVerbs:         notifications.DefaultGlobalVerbs,
	}
}

func TestBuildWithoutExternalServices(t *testing.T) {
	db := testutil.NewDB(t)

	k, err := Build(context.Background(), testConfig(), db, Overrides{})
	require.NoError(t, err)
	defer k.Cleanup(context.Background())

	assert.Equal(t, []string{"live"}, k.Queue().Adapters())
	assert.NotNil(t, k.Handlers())

	status, healthy := k.Validator().Status(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, map[string]string{"database": "ok"}, status)
}

func TestBuildDeliversAfterCommit(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	mailer := &fakeMailer{}
	writer := &fakeWriter{}

	k, err := Build(context.Background(), testConfig(), db, Overrides{Mailer: mailer, Events: writer})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "events", "live"}, k.Queue().Adapters())

	community := fx.Community("local.test")
	alice := fx.User("alice")
	mod := fx.User("mod")
	fx.Member(community, alice, models.RoleMember)
	modMembership := fx.Member(community, mod, models.RoleModerator)
	require.NotNil(t, modMembership)

	actor := social.Actor{
		User:       alice,
		Community:  community,
		Membership: &models.Membership{CommunityID: community.ID, MemberID: alice.ID, Role: models.RoleMember, Active: true},
	}
	_, err = k.Service().CreateActivity(context.Background(), actor, social.ActivityInput{Title: "Garage sale on Saturday"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(mailer.recipients()) == 1 && writer.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"mod@example.com"}, mailer.recipients())

	require.NoError(t, k.Cleanup(context.Background()))
	assert.True(t, writer.closed)
}
