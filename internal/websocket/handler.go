package websocket

import (
	"context"
	"strings"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/util"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UnreadCounter supplies the badge count sent when a browser connects
type UnreadCounter interface {
	UnreadCount(ctx context.Context, communityID, userID string) (int64, error)
}

// Handler upgrades authenticated inbox requests to live connections
type Handler struct {
	hub            *Hub
	counter        UnreadCounter
	originPatterns []string
}

// NewHandler creates a live inbox handler. allowedOrigins are the CORS
// origins; their scheme is stripped to form websocket origin patterns.
func NewHandler(hub *Hub, counter UnreadCounter, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		counter:        counter,
		originPatterns: OriginPatterns(allowedOrigins),
	}
}

// OriginPatterns converts origins such as https://a.example into host
// patterns accepted by websocket.AcceptOptions
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if i := strings.Index(origin, "://"); i >= 0 {
			origin = origin[i+3:]
		}
		origin = strings.TrimSuffix(origin, "/")
		if origin != "" {
			patterns = append(patterns, origin)
		}
	}
	return patterns
}

// HandleInbox streams the current user's inbox for the request's community.
// It must run behind the session and community middleware.
func (h *Handler) HandleInbox(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	community, ok := util.GetCommunityFromContext(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("Live inbox upgrade failed", logger.WithUserID(user.ID), zap.Error(err))
		return
	}

	client := NewClient(c.Request.Context(), h.hub, conn, community.ID, user.ID)
	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: community.Name,
	}))
	h.sendCount(client)

	go client.WritePump()
	client.ReadPump()
}

func (h *Handler) sendCount(client *Client) {
	if h.counter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(client.ctx, 5*time.Second)
	defer cancel()

	unread, err := h.counter.UnreadCount(ctx, client.CommunityID, client.UserID)
	if err != nil {
		logger.Log.Warn("Failed to load unread count for live inbox",
			logger.WithUserID(client.UserID),
			logger.WithCommunityID(client.CommunityID),
			zap.Error(err),
		)
		return
	}
	_ = client.Send(NewMessage(MessageTypeNotificationCount, CountPayload{Unread: unread}))
}
