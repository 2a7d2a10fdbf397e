package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Butonix/localhub/internal/auth"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeCommunities map[string]*models.Community

func (f fakeCommunities) GetCommunityByDomain(_ context.Context, domain string) (*models.Community, error) {
	if c, ok := f[domain]; ok {
		return c, nil
	}
	return nil, repository.ErrCommunityNotFound
}

type fakeMemberships map[string]*models.Membership // keyed by user id

func (f fakeMemberships) GetMembership(_ context.Context, communityID, userID string) (*models.Membership, error) {
	if m, ok := f[userID]; ok && m.CommunityID == communityID {
		return m, nil
	}
	return nil, repository.ErrMembershipNotFound
}

type authFixture struct {
	router    *gin.Engine
	member    *models.User
	moderator *models.User
	outsider  *models.User
}

func newAuthFixture() *authFixture {
	gin.SetMode(gin.TestMode)

	community := &models.Community{ID: "c1", Domain: "hub.example.com", Active: true}
	f := &authFixture{
		member:    &models.User{ID: "u-member", Email: "member@example.com"},
		moderator: &models.User{ID: "u-mod", Email: "mod@example.com"},
		outsider:  &models.User{ID: "u-out", Email: "out@example.com"},
	}

	tokens := auth.NewMockService()
	tokens.AddUser(f.member)
	tokens.AddUser(f.moderator)
	tokens.AddUser(f.outsider)

	memberships := fakeMemberships{
		f.member.ID:    {CommunityID: "c1", MemberID: f.member.ID, Role: models.RoleMember, Active: true},
		f.moderator.ID: {CommunityID: "c1", MemberID: f.moderator.ID, Role: models.RoleModerator, Active: true},
	}

	r := gin.New()
	r.Use(CommunityMiddleware(fakeCommunities{"hub.example.com": community}))
	authed := r.Group("/", AuthMiddleware(tokens, memberships))
	authed.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(util.ContextUserIDKey)})
	})
	authed.GET("/inbox", RequireMember(), func(c *gin.Context) { c.Status(http.StatusOK) })
	authed.GET("/mod", RequireModerator(), func(c *gin.Context) { c.Status(http.StatusOK) })
	f.router = r
	return f
}

func (f *authFixture) do(path, host string, user *models.User, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	if user != nil {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: auth.TokenFor(user)})
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHostDomain(t *testing.T) {
	assert.Equal(t, "hub.example.com", HostDomain("Hub.Example.com:8080"))
	assert.Equal(t, "hub.example.com", HostDomain("hub.example.com."))
	assert.Equal(t, "::1", HostDomain("[::1]:80"))
	assert.Equal(t, "localhost", HostDomain("localhost"))
}

func TestCommunityMiddleware_UnknownHost(t *testing.T) {
	f := newAuthFixture()
	w := f.do("/whoami", "other.example.com", f.member, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	f := newAuthFixture()

	w := f.do("/whoami", "hub.example.com:443", f.member, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), f.member.ID)

	w = f.do("/whoami", "hub.example.com", nil, map[string]string{
		"Authorization": "Bearer " + auth.TokenFor(f.moderator),
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), f.moderator.ID)

	w = f.do("/whoami", "hub.example.com", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do("/whoami", "hub.example.com", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireMember(t *testing.T) {
	f := newAuthFixture()

	assert.Equal(t, http.StatusOK, f.do("/inbox", "hub.example.com", f.member, nil).Code)

	w := f.do("/inbox", "hub.example.com", f.outsider, map[string]string{"Accept": "application/json"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_MEMBER")

	w = f.do("/inbox", "hub.example.com", f.outsider, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, JoinPath, w.Header().Get("Location"))
}

func TestRequireModerator(t *testing.T) {
	f := newAuthFixture()

	assert.Equal(t, http.StatusOK, f.do("/mod", "hub.example.com", f.moderator, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do("/mod", "hub.example.com", f.member, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do("/mod", "hub.example.com", f.outsider, nil).Code)
}
