package handlers

import (
	"net/http"

	"github.com/Butonix/localhub/internal/middleware"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
)

// JoinCommunity makes the current user a member of the request's community
// POST /api/v1/community/join
func (h *Handlers) JoinCommunity(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	community, ok := util.GetCommunityFromContext(c)
	if !ok {
		return
	}

	membership, joined, err := h.service.Join(c.Request.Context(), user, community)
	if err != nil {
		respondError(c, err)
		return
	}
	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, inboxPath)
		return
	}
	status := http.StatusOK
	if joined {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"membership": membership, "joined": joined})
}

// JoinPage is the landing page non-members are redirected to
// GET /community/join
func (h *Handlers) JoinPage(c *gin.Context) {
	community, ok := util.GetCommunityFromContext(c)
	if !ok {
		return
	}
	if _, member := util.GetMembershipFromContext(c); member {
		c.Redirect(http.StatusFound, inboxPath)
		return
	}

	data := gin.H{"Community": community}
	if value, exists := c.Get(util.ContextUserKey); exists {
		data["User"] = value
	}
	renderHTML(c, http.StatusOK, "join.html", data)
}
