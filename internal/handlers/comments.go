package handlers

import (
	"net/http"

	"github.com/Butonix/localhub/internal/social"
	"github.com/gin-gonic/gin"
)

// UpdateComment edits a comment
// PUT /api/v1/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req social.CommentInput
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.service.UpdateComment(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment deletes a comment and every notification about it
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.DeleteComment(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// LikeComment likes a comment
// POST /api/v1/comments/:id/like
func (h *Handlers) LikeComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	liked, err := h.service.LikeComment(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// FlagComment reports a comment to the moderators
// POST /api/v1/comments/:id/flag
func (h *Handlers) FlagComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req FlagRequest
	if !bindJSON(c, &req) {
		return
	}
	flagged, err := h.service.FlagComment(c.Request.Context(), a, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flagged": flagged})
}
