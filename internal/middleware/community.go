package middleware

import (
	"context"
	"errors"
	"net"
	"strings"

	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommunityLookup finds the community served at a domain
type CommunityLookup interface {
	GetCommunityByDomain(ctx context.Context, domain string) (*models.Community, error)
}

// CommunityMiddleware resolves the tenant from the Host header. Unknown or
// inactive hosts get 404.
func CommunityMiddleware(lookup CommunityLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		domain := HostDomain(c.Request.Host)
		if domain == "" {
			util.RespondWithAPIError(c, apierrors.NotFound("community"))
			return
		}

		community, err := lookup.GetCommunityByDomain(c.Request.Context(), domain)
		if err != nil {
			if !errors.Is(err, repository.ErrCommunityNotFound) {
				logger.Log.Error("Failed to resolve community", zap.String("domain", domain), zap.Error(err))
				util.RespondWithAPIError(c, apierrors.InternalError("failed to resolve community"))
				return
			}
			util.RespondWithAPIError(c, apierrors.NotFound("community"))
			return
		}

		c.Set(util.ContextCommunityKey, community)
		c.Next()
	}
}

// HostDomain strips the port from a Host header value and lower-cases it
func HostDomain(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	return strings.ToLower(host)
}
