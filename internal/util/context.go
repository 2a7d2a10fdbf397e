package util

import (
	"net/http"

	"github.com/Butonix/localhub/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth and community middleware
const (
	ContextUserKey       = "user"
	ContextUserIDKey     = "user_id"
	ContextCommunityKey  = "community"
	ContextMembershipKey = "membership"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it responds with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		RespondUnauthorized(c)
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "invalid user data in context"})
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext extracts the user ID from the Gin context.
// If the user is not authenticated, it responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondUnauthorized(c)
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userIDStr, true
}

// GetCommunityFromContext returns the community resolved from the Host header.
// Responds with 404 when the request was not routed through the community
// middleware.
func GetCommunityFromContext(c *gin.Context) (*models.Community, bool) {
	value, exists := c.Get(ContextCommunityKey)
	if !exists {
		RespondNotFound(c, "community")
		return nil, false
	}
	community, ok := value.(*models.Community)
	if !ok || community == nil {
		RespondNotFound(c, "community")
		return nil, false
	}
	return community, true
}

// GetMembershipFromContext returns the current user's active membership, if any
func GetMembershipFromContext(c *gin.Context) (*models.Membership, bool) {
	value, exists := c.Get(ContextMembershipKey)
	if !exists {
		return nil, false
	}
	membership, ok := value.(*models.Membership)
	return membership, ok && membership != nil
}
