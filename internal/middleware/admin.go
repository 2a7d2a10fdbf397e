package middleware

import (
	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
)

// RequireModerator ensures the user moderates the request's community.
// It must run after AuthMiddleware.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, ok := util.GetMembershipFromContext(c)
		if !ok {
			util.RespondWithAPIError(c, apierrors.NotMember())
			return
		}
		if !membership.IsModerator() {
			util.RespondWithAPIError(c, apierrors.Forbidden("moderator access required"))
			return
		}
		c.Next()
	}
}
