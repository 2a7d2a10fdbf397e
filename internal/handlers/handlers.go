package handlers

import (
	"embed"
	stderrors "errors"
	"html/template"
	"time"

	"github.com/Butonix/localhub/internal/auth"
	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/social"
	"github.com/Butonix/localhub/internal/util"
	"github.com/Butonix/localhub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"timestamp": func(t time.Time) string { return t.Format("Jan 2, 15:04") },
	"add":       func(a, b int) int { return a + b },
}).ParseFS(templateFS, "templates/*.html"))

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	service  *social.Service
	inbox    *notifications.Inbox
	registry *notifications.Registry

	auth          auth.ServiceInterface
	preferences   *models.NotificationPreferencesChecker
	subscriptions repository.PushSubscriptionRepository
	validator     *validation.ServiceValidator

	vapidPublicKey string
	secureCookies  bool
	sessionTTL     time.Duration
}

// NewHandlers creates a new handlers instance
func NewHandlers(service *social.Service, inbox *notifications.Inbox, registry *notifications.Registry) *Handlers {
	return &Handlers{
		service:    service,
		inbox:      inbox,
		registry:   registry,
		sessionTTL: 30 * 24 * time.Hour,
	}
}

// SetAuthService sets the login and session service
func (h *Handlers) SetAuthService(svc auth.ServiceInterface) {
	h.auth = svc
}

// SetPreferences sets the notification preferences store
func (h *Handlers) SetPreferences(prefs *models.NotificationPreferencesChecker) {
	h.preferences = prefs
}

// SetPushSubscriptions sets the web push subscription store and the
// public VAPID key browsers subscribe with
func (h *Handlers) SetPushSubscriptions(subs repository.PushSubscriptionRepository, vapidPublicKey string) {
	h.subscriptions = subs
	h.vapidPublicKey = vapidPublicKey
}

// SetServiceValidator sets the dependency checks reported by /health
func (h *Handlers) SetServiceValidator(v *validation.ServiceValidator) {
	h.validator = v
}

// SetSessionCookie configures the session cookie written on login
func (h *Handlers) SetSessionCookie(secure bool, ttl time.Duration) {
	h.secureCookies = secure
	if ttl > 0 {
		h.sessionTTL = ttl
	}
}

// actor builds the acting user from the auth and community middleware.
// It responds and returns false when either is missing.
func actor(c *gin.Context) (social.Actor, bool) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return social.Actor{}, false
	}
	community, ok := util.GetCommunityFromContext(c)
	if !ok {
		return social.Actor{}, false
	}
	membership, _ := util.GetMembershipFromContext(c)
	return social.Actor{User: user, Community: community, Membership: membership}, true
}

// respondError renders service errors. Inbox sentinels become 404 so a
// recipient cannot tell someone else's notification from a missing one.
func respondError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, repository.ErrNotificationNotFound):
		util.RespondWithAPIError(c, apierrors.NotFound("notification"))
	default:
		util.RespondError(c, err)
	}
}

// bindJSON binds the request body and answers 400 on failure
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		util.RespondWithAPIError(c, apierrors.BadRequest("invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}

func renderHTML(c *gin.Context, status int, name string, data interface{}) {
	c.Render(status, render.HTML{Template: templates, Name: name, Data: data})
}
