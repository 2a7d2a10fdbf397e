package handlers

import (
	"net/http"

	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PushSubscriptionRequest is the browser PushSubscription JSON
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		Auth   string `json:"auth" binding:"required,max=255"`
		P256dh string `json:"p256dh" binding:"required,max=255"`
	} `json:"keys"`
}

func (h *Handlers) bindSubscription(c *gin.Context) (*PushSubscriptionRequest, bool) {
	var req PushSubscriptionRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	if err := util.ValidatePushEndpoint(req.Endpoint); err != nil {
		util.RespondValidationError(c, "endpoint", err.Error())
		return nil, false
	}
	return &req, true
}

// SubscribePush stores a web push subscription for the current user in
// this community. Subscribing twice is not an error.
// POST /api/v1/notifications/subscribe
func (h *Handlers) SubscribePush(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	req, ok := h.bindSubscription(c)
	if !ok {
		return
	}

	created, err := h.subscriptions.Subscribe(c.Request.Context(), &models.PushSubscription{
		UserID:      a.User.ID,
		CommunityID: a.Community.ID,
		Endpoint:    req.Endpoint,
		Auth:        req.Keys.Auth,
		P256dh:      req.Keys.P256dh,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if created {
		logger.Log.Info("Push subscription added",
			logger.WithUserID(a.User.ID),
			logger.WithCommunityID(a.Community.ID),
		)
	}
	c.JSON(http.StatusCreated, gin.H{"message": "ok"})
}

// UnsubscribePush removes a web push subscription
// POST /api/v1/notifications/unsubscribe
func (h *Handlers) UnsubscribePush(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	req, ok := h.bindSubscription(c)
	if !ok {
		return
	}

	removed, err := h.subscriptions.Unsubscribe(c.Request.Context(),
		a.User.ID, a.Community.ID, req.Endpoint, req.Keys.Auth, req.Keys.P256dh)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Log.Debug("Push unsubscribe",
		logger.WithUserID(a.User.ID),
		zap.Bool("removed", removed),
	)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// GetVAPIDPublicKey returns the key browsers pass to pushManager.subscribe
// GET /api/v1/notifications/vapid-key
func (h *Handlers) GetVAPIDPublicKey(c *gin.Context) {
	if h.vapidPublicKey == "" {
		util.RespondWithAPIError(c, apierrors.NotFound("web push key"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.vapidPublicKey})
}
