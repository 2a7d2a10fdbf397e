package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/Butonix/localhub/internal/email"
	"github.com/Butonix/localhub/internal/models"
)

// ErrPermanent marks a delivery failure that retrying cannot fix
var ErrPermanent = errors.New("permanent delivery failure")

// PreferenceChecker answers per-user delivery preferences
type PreferenceChecker interface {
	EmailEnabled(userID, verb string) bool
	PushEnabled(userID string) bool
}

// Directory looks up the people and places a delivery needs
type Directory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetCommunity(ctx context.Context, communityID string) (*models.Community, error)
}

// EmailAdapter emails notifications to recipients who opted in to the verb
type EmailAdapter struct {
	mailer      email.Mailer
	prefs       PreferenceChecker
	directory   Directory
	baseURL     string
	settingsURL string
}

// NewEmailAdapter creates an email adapter. baseURL prefixes relative links.
func NewEmailAdapter(mailer email.Mailer, prefs PreferenceChecker, directory Directory, baseURL string) *EmailAdapter {
	return &EmailAdapter{
		mailer:      mailer,
		prefs:       prefs,
		directory:   directory,
		baseURL:     baseURL,
		settingsURL: baseURL + "/api/v1/notifications/preferences",
	}
}

func (a *EmailAdapter) Name() string { return "email" }

func (a *EmailAdapter) Deliver(ctx context.Context, job *Job) error {
	n := job.Notification
	if !a.prefs.EmailEnabled(n.RecipientID, n.Verb) {
		return nil
	}

	recipient := n.Recipient
	if recipient == nil {
		user, err := a.directory.GetUser(ctx, n.RecipientID)
		if err != nil {
			return fmt.Errorf("%w: recipient %s: %v", ErrPermanent, n.RecipientID, err)
		}
		recipient = user
	}
	if recipient.Email == "" {
		return nil
	}

	data := email.NotificationData{
		RecipientName: recipient.DisplayName(),
		Header:        job.Message.Header,
		Body:          job.Message.Body,
		URL:           absoluteURL(a.baseURL, job.Message.URL),
		SettingsURL:   a.settingsURL,
	}
	if community, err := a.directory.GetCommunity(ctx, n.CommunityID); err == nil {
		data.CommunityName = community.Name
		data.URL = absoluteURL("https://"+community.Domain, job.Message.URL)
	}

	msg, err := email.RenderNotification(recipient.Email, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return a.mailer.Send(ctx, msg)
}

func absoluteURL(base, path string) string {
	if base == "" || len(path) == 0 || path[0] != '/' {
		return path
	}
	return base + path
}
