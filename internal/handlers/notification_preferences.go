package handlers

import (
	"errors"
	"net/http"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func (h *Handlers) preferencesResponse(prefs *models.NotificationPreferences) gin.H {
	return gin.H{
		"email_verbs":     prefs.Verbs(),
		"push_enabled":    prefs.PushEnabled,
		"available_verbs": h.registry.AllVerbs(),
	}
}

// GetNotificationPreferences gets the current user's notification preferences
// GET /api/v1/notifications/preferences
func (h *Handlers) GetNotificationPreferences(c *gin.Context) {
	currentUser, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	prefs, err := h.preferences.GetOrCreate(currentUser.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to get preferences")
		return
	}
	c.JSON(http.StatusOK, h.preferencesResponse(prefs))
}

// UpdateNotificationPreferencesRequest is the request body for updating notification preferences
type UpdateNotificationPreferencesRequest struct {
	EmailVerbs  []string `json:"email_verbs" binding:"dive,verb"`
	PushEnabled *bool    `json:"push_enabled"`
}

// UpdateNotificationPreferences replaces the emailed verbs and, when given,
// the push toggle
// PUT /api/v1/notifications/preferences
func (h *Handlers) UpdateNotificationPreferences(c *gin.Context) {
	currentUser, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req UpdateNotificationPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			util.RespondValidationError(c, "email_verbs", "unknown notification verb")
			return
		}
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	prefs, err := h.preferences.GetOrCreate(currentUser.ID)
	if err != nil {
		util.RespondInternalError(c, "failed to get preferences")
		return
	}
	pushEnabled := prefs.PushEnabled
	if req.PushEnabled != nil {
		pushEnabled = *req.PushEnabled
	}

	prefs, err = h.preferences.Update(currentUser.ID, req.EmailVerbs, pushEnabled)
	if err != nil {
		util.RespondInternalError(c, "failed to update preferences")
		return
	}
	c.JSON(http.StatusOK, h.preferencesResponse(prefs))
}
