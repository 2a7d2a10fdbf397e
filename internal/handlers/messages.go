package handlers

import (
	"net/http"

	"github.com/Butonix/localhub/internal/social"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
)

// SendMessage sends a private message to another member
// POST /api/v1/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req social.MessageInput
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.service.SendMessage(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListMessages returns the current user's received messages
// GET /api/v1/messages
func (h *Handlers) ListMessages(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	page, pageSize := util.ParsePagination(c)
	messages, err := h.service.ListMessages(c.Request.Context(), a, pageSize, (page-1)*pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ReadMessage marks a received message read along with its notifications
// POST /api/v1/messages/:id/read
func (h *Handlers) ReadMessage(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	msg, err := h.service.ReadMessage(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
