package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Butonix/localhub/internal/auth"
	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JoinPath is where non-members are sent when they browse a community
const JoinPath = "/community/join"

// TokenValidator resolves a session token to its user
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// MembershipLookup finds a user's active membership in a community
type MembershipLookup interface {
	GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error)
}

// AuthMiddleware requires a valid session from the session cookie or a
// Bearer token. When the request has a community, the user's membership
// is loaded too.
func AuthMiddleware(tokens TokenValidator, memberships MembershipLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens, memberships) {
			util.RespondUnauthorized(c)
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware loads the session when there is one
func OptionalAuthMiddleware(tokens TokenValidator, memberships MembershipLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens, memberships)
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens TokenValidator, memberships MembershipLookup) bool {
	token := sessionToken(c)
	if token == "" {
		return false
	}

	user, err := tokens.ValidateToken(c.Request.Context(), token)
	if err != nil {
		logger.Log.Debug("Rejected session token", logger.WithIP(c.ClientIP()), zap.Error(err))
		return false
	}
	c.Set(util.ContextUserKey, user)
	c.Set(util.ContextUserIDKey, user.ID)

	value, ok := c.Get(util.ContextCommunityKey)
	if !ok || memberships == nil {
		return true
	}
	community := value.(*models.Community)
	membership, err := memberships.GetMembership(c.Request.Context(), community.ID, user.ID)
	switch {
	case err == nil:
		c.Set(util.ContextMembershipKey, membership)
	case !errors.Is(err, repository.ErrMembershipNotFound):
		logger.Log.Warn("Failed to load membership",
			logger.WithUserID(user.ID),
			logger.WithCommunityID(community.ID),
			zap.Error(err),
		)
	}
	return true
}

func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(auth.SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireMember only lets active members of the request's community
// through. Browsers are redirected to the join page, API clients get 403.
func RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := util.GetMembershipFromContext(c); ok {
			c.Next()
			return
		}
		if WantsHTML(c) {
			c.Redirect(http.StatusFound, JoinPath)
			c.Abort()
			return
		}
		util.RespondWithAPIError(c, apierrors.NotMember())
	}
}

// WantsHTML reports whether the client prefers HTML over JSON
func WantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}
