package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FollowUser follows another user. The followed user is notified once.
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	created, err := h.service.FollowUser(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true, "created": created})
}

// UnfollowUser stops following a user
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.UnfollowUser(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

// BlockUser hides a user's notifications from the current user
// POST /api/v1/users/:id/block
func (h *Handlers) BlockUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	created, err := h.service.BlockUser(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": true, "created": created})
}

// FollowTag subscribes to a hashtag in this community
// POST /api/v1/tags/:tag/follow
func (h *Handlers) FollowTag(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	tag, created, err := h.service.FollowTag(c.Request.Context(), a, c.Param("tag"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag, "following": true, "created": created})
}

// UnfollowTag unsubscribes from a hashtag
// DELETE /api/v1/tags/:tag/follow
func (h *Handlers) UnfollowTag(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.UnfollowTag(c.Request.Context(), a, c.Param("tag")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}
