package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Browsers only send pings, so inbound frames stay small
	maxMessageSize = 4 * 1024

	// Send buffer size
	sendBufferSize = 32
)

// Client is one browser tab watching an inbox
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID      string
	CommunityID string
	ConnectedAt time.Time

	// Buffered channel of outbound messages. Only the hub and enqueue touch
	// it, under sendMu, so it is never written after being closed.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a client bound to ctx. conn may be nil for clients that
// are only fed by the hub.
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, communityID, userID string) *Client {
	ctx, cancel := context.WithCancel(ctx)
	config := hub.rateLimitConfig

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		CommunityID: communityID,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
		rateLimiter: NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (c *Client) key() string {
	return inboxKey(c.CommunityID, c.UserID)
}

// enqueue queues data without blocking. It reports false when the buffer is
// full or the client has been closed.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// Send queues a message for this client
func (c *Client) Send(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return fmt.Errorf("client %s: send buffer full or closed", c.UserID)
	}
	return nil
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// ReadPump reads client frames until the connection drops. The live inbox
// is server-driven, so the only meaningful inbound message is ping.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("Live inbox closed by client", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Debug("Live inbox read failed", logger.WithUserID(c.UserID), zap.Error(err))
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			continue
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}

		switch message.Type {
		case MessageTypePing:
			_ = c.Send(NewMessage(MessageTypePong, nil))
		default:
			c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
		}
	}
}

// WritePump writes queued messages and keeps the connection alive
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				// Hub dropped this client
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Log.Debug("Live inbox write failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("Live inbox ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

// Close cancels the client and closes its connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()

	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}
