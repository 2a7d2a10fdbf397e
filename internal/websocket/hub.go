// Package websocket streams inbox updates to connected browsers.
// Uses github.com/coder/websocket, the context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"go.uber.org/zap"
)

// Hub tracks live inbox connections. A user may hold several connections
// per community, one per open tab.
type Hub struct {
	// Clients by inbox key (community + user)
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	unicast    chan *unicastMessage

	mu     sync.RWMutex
	active int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rateLimitConfig RateLimitConfig
}

type unicastMessage struct {
	key  string
	data []byte
}

// RateLimitConfig bounds how fast a client may send messages
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 2,
		BurstSize:            5,
	}
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		register:        make(chan *Client, 64),
		unregister:      make(chan *Client, 64),
		unicast:         make(chan *unicastMessage, 256),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

func inboxKey(communityID, userID string) string {
	return communityID + ":" + userID
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	logger.Log.Info("Live inbox hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.unicast:
			h.sendToInbox(msg.key, msg.data)
		}
	}
}

// Stop closes every connection and waits for Run to return until ctx expires
func (h *Hub) Stop(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds a client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.closeSend()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsOnline reports whether the user has a live inbox open in the community
func (h *Hub) IsOnline(communityID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[inboxKey(communityID, userID)]) > 0
}

// ActiveConnections returns the number of open connections
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// Publish queues msg for every connection of the user's inbox. It never
// blocks and reports false when the message was not queued.
func (h *Hub) Publish(communityID, userID string, msg *Message) bool {
	if !h.IsOnline(communityID, userID) {
		return false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Failed to encode live message", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	select {
	case h.unicast <- &unicastMessage{key: inboxKey(communityID, userID), data: data}:
		return true
	case <-h.ctx.Done():
		return false
	default:
		logger.Log.Warn("Live inbox hub is backed up, dropping message", zap.String("type", msg.Type))
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := client.key()
	if h.clients[key] == nil {
		h.clients[key] = make(map[*Client]struct{})
	}
	h.clients[key][client] = struct{}{}
	h.active++
	metrics.SetLiveConnections(h.active)

	logger.Log.Debug("Live inbox connected",
		logger.WithUserID(client.UserID),
		logger.WithCommunityID(client.CommunityID),
		zap.Int("active", h.active),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	key := client.key()
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, key)
	}
	client.closeSend()
	h.active--
	metrics.SetLiveConnections(h.active)
}

// sendToInbox writes data to each connection of an inbox. Connections
// whose buffer is full are dropped; the browser reconnects and refetches.
func (h *Hub) sendToInbox(key string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[key] {
		if !client.enqueue(data) {
			logger.Log.Warn("Live inbox client too slow, disconnecting", logger.WithUserID(client.UserID))
			h.removeLocked(client)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.active = 0
	metrics.SetLiveConnections(0)
	logger.Log.Info("Live inbox hub stopped")
}
