package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/util"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int64

func (f fixedCounter) UnreadCount(context.Context, string, string) (int64, error) {
	return int64(f), nil
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Stop(ctx)
	})
	return hub
}

func decode(t *testing.T, data []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubPublishReachesOnlyTheInbox(t *testing.T) {
	hub := runHub(t)
	alice := NewClient(context.Background(), hub, nil, "c1", "alice")
	aliceElsewhere := NewClient(context.Background(), hub, nil, "c2", "alice")
	hub.Register(alice)
	hub.Register(aliceElsewhere)

	require.Eventually(t, func() bool { return hub.ActiveConnections() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsOnline("c1", "alice"))
	assert.False(t, hub.IsOnline("c1", "bob"))

	assert.True(t, hub.Publish("c1", "alice", NewMessage(MessageTypeNotificationCount, CountPayload{Unread: 3})))
	assert.False(t, hub.Publish("c1", "bob", NewMessage(MessageTypeNotificationCount, CountPayload{Unread: 1})))

	select {
	case data := <-alice.send:
		env := decode(t, data)
		assert.Equal(t, MessageTypeNotificationCount, env.Type)
		assert.JSONEq(t, `{"unread":3}`, string(env.Payload))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	assert.Empty(t, aliceElsewhere.send)
}

func TestHubUnregister(t *testing.T) {
	hub := runHub(t)
	client := NewClient(context.Background(), hub, nil, "c1", "alice")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline("c1", "alice") }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsOnline("c1", "alice") }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.ActiveConnections())

	// A second unregister is ignored
	hub.Unregister(client)
	assert.False(t, client.enqueue([]byte("late")))
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := runHub(t)
	client := NewClient(context.Background(), hub, nil, "c1", "alice")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline("c1", "alice") }, time.Second, 5*time.Millisecond)

	for i := 0; i <= sendBufferSize; i++ {
		hub.Publish("c1", "alice", NewMessage(MessageTypeNotificationCount, CountPayload{Unread: int64(i)}))
	}

	require.Eventually(t, func() bool { return !hub.IsOnline("c1", "alice") }, time.Second, 5*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	client := NewClient(context.Background(), hub, nil, "c1", "alice")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline("c1", "alice") }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Stop(ctx))

	_, open := <-client.send
	assert.False(t, open)
	assert.False(t, hub.Publish("c1", "alice", NewMessage(MessageTypePing, nil)))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow(), "Request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("rate_limited", "slow down")

	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, ErrorPayload{Code: "rate_limited", Message: "slow down"}, msg.Payload)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t,
		[]string{"local.test", "*.example.com", "localhost:3000"},
		OriginPatterns([]string{"https://local.test/", " *.example.com ", "http://localhost:3000", ""}),
	)
}

func TestHandleInboxStreamsCountAndNotifications(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := runHub(t)

	router := gin.New()
	router.GET("/live", func(c *gin.Context) {
		c.Set(util.ContextUserKey, &models.User{ID: "alice", Username: "alice"})
		c.Set(util.ContextUserIDKey, "alice")
		c.Set(util.ContextCommunityKey, &models.Community{ID: "c1", Name: "Local"})
		c.Next()
	}, NewHandler(hub, fixedCounter(2), nil).HandleInbox)

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/live", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() envelope {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		return decode(t, data)
	}

	assert.Equal(t, MessageTypeSystem, read().Type)
	count := read()
	assert.Equal(t, MessageTypeNotificationCount, count.Type)
	assert.JSONEq(t, `{"unread":2}`, string(count.Payload))

	require.Eventually(t, func() bool { return hub.IsOnline("c1", "alice") }, time.Second, 5*time.Millisecond)
	require.True(t, hub.Publish("c1", "alice", NewMessage(MessageTypeNotification, NotificationPayload{ID: "n1", Verb: "mention"})))

	notification := read()
	assert.Equal(t, MessageTypeNotification, notification.Type)
	assert.Contains(t, string(notification.Payload), `"id":"n1"`)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MessageTypePong, read().Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"subscribe"}`)))
	assert.Equal(t, MessageTypeError, read().Type)
}

func TestHandleInboxRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/live", NewHandler(NewHub(), nil, nil).HandleInbox)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 401, w.Code)
}
