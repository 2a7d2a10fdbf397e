package handlers

import (
	"net/http"

	"github.com/Butonix/localhub/internal/social"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateActivity publishes a post, event, poll or photo
// POST /api/v1/activities
func (h *Handlers) CreateActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req social.ActivityInput
	if !bindJSON(c, &req) {
		return
	}

	activity, err := h.service.CreateActivity(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"activity": activity})
}

// ListActivities returns the community's activities, newest first
// GET /api/v1/activities
func (h *Handlers) ListActivities(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	page, pageSize := util.ParsePagination(c)

	activities, err := h.service.ListActivities(c.Request.Context(), a, pageSize, (page-1)*pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activities": activities,
		"meta": gin.H{
			"page":      page,
			"page_size": pageSize,
			"count":     len(activities),
		},
	})
}

// GetActivity returns an activity with its comments. Viewing it marks the
// viewer's notifications about it read.
// GET /api/v1/activities/:id
func (h *Handlers) GetActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	activity, comments, err := h.service.GetActivity(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity, "comments": comments})
}

// UpdateActivity edits an activity
// PUT /api/v1/activities/:id
func (h *Handlers) UpdateActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req social.ActivityInput
	if !bindJSON(c, &req) {
		return
	}

	activity, err := h.service.UpdateActivity(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

// DeleteActivity deletes an activity and every notification about it
// DELETE /api/v1/activities/:id
func (h *Handlers) DeleteActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// PurgeActivity permanently removes an activity. Moderators only.
// DELETE /api/v1/activities/:id/purge
func (h *Handlers) PurgeActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.PurgeActivity(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "purged"})
}

// LikeActivity likes an activity. Liking twice is a no-op.
// POST /api/v1/activities/:id/like
func (h *Handlers) LikeActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	liked, err := h.service.LikeActivity(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// FlagRequest is the body of a flag report
type FlagRequest struct {
	Reason string `json:"reason" binding:"max=20"`
}

// FlagActivity reports an activity to the moderators
// POST /api/v1/activities/:id/flag
func (h *Handlers) FlagActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req FlagRequest
	if !bindJSON(c, &req) {
		return
	}
	flagged, err := h.service.FlagActivity(c.Request.Context(), a, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flagged": flagged})
}

// ReshareActivity reshares an activity into the community
// POST /api/v1/activities/:id/reshare
func (h *Handlers) ReshareActivity(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	reshare, err := h.service.ReshareActivity(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"activity": reshare})
}

// CreateComment comments on an activity
// POST /api/v1/activities/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req social.CommentInput
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.service.CreateComment(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// VoteRequest picks a poll answer
type VoteRequest struct {
	AnswerID string `json:"answer_id" binding:"required"`
}

// Vote votes in a poll
// POST /api/v1/activities/:id/vote
func (h *Handlers) Vote(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req VoteRequest
	if !bindJSON(c, &req) {
		return
	}
	voted, err := h.service.Vote(c.Request.Context(), a, c.Param("id"), req.AnswerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted})
}

// Attend marks the current user as attending an event
// POST /api/v1/activities/:id/attend
func (h *Handlers) Attend(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	attending, err := h.service.Attend(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attending": attending})
}

// CancelEvent cancels an event and tells its attendees
// POST /api/v1/activities/:id/cancel
func (h *Handlers) CancelEvent(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.CancelEvent(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "canceled"})
}
