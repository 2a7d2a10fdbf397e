package handlers

import (
	"net/http"

	"github.com/Butonix/localhub/internal/middleware"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
)

const inboxPath = "/api/v1/notifications"

// GetNotifications renders one page of the current user's inbox. Browsers
// get the HTML page; JSON is served when the client asks for it.
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	page, pageSize := util.ParsePagination(c)

	result, err := h.inbox.List(c.Request.Context(), a.Community.ID, a.User.ID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusOK, result)
		return
	}

	unread, err := h.inbox.UnreadCount(c.Request.Context(), a.Community.ID, a.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	renderHTML(c, http.StatusOK, "notifications.html", gin.H{
		"Community": a.Community,
		"User":      a.User,
		"Page":      result,
		"Unread":    unread,
		"InboxPath": inboxPath,
	})
}

// GetUnreadCount returns the badge count for the current user
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	count, err := h.inbox.UnreadCount(c.Request.Context(), a.Community.ID, a.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead marks one notification read
// POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	n, err := h.inbox.MarkRead(c.Request.Context(), a.Community.ID, a.User.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, inboxPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

// MarkAllNotificationsRead marks every unread notification read
// POST /api/v1/notifications/read
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	marked, err := h.inbox.MarkAllRead(c.Request.Context(), a.Community.ID, a.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, inboxPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// DeleteNotification removes one notification
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.inbox.Delete(c.Request.Context(), a.Community.ID, a.User.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// DeleteAllNotifications clears the inbox
// DELETE /api/v1/notifications
func (h *Handlers) DeleteAllNotifications(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	deleted, err := h.inbox.DeleteAll(c.Request.Context(), a.Community.ID, a.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
