package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/telemetry"
	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// SubscriptionStore lists and prunes push subscriptions
type SubscriptionStore interface {
	ListForUser(ctx context.Context, userID, communityID string) ([]*models.PushSubscription, error)
	Delete(ctx context.Context, id string) error
}

// PushSender sends one encrypted web push message and returns the push
// service's HTTP status
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error)
}

// VAPIDConfig holds the application server keys
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

// WebPushSender sends through webpush-go with a traced HTTP client
type WebPushSender struct {
	vapid  VAPIDConfig
	client *http.Client
}

// NewWebPushSender creates a sender
func NewWebPushSender(vapid VAPIDConfig) *WebPushSender {
	if vapid.TTL <= 0 {
		vapid.TTL = 86400
	}
	return &WebPushSender{
		vapid:  vapid,
		client: telemetry.NewInstrumentedHTTPClient(15 * time.Second),
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (status int, err error) {
	ctx, span := telemetry.TraceExternalCall(ctx, "webpush", "send")
	defer func() {
		telemetry.RecordExternalCallResult(span, status, err)
		span.End()
	}()

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.vapid.Subscriber,
		VAPIDPublicKey:  s.vapid.PublicKey,
		VAPIDPrivateKey: s.vapid.PrivateKey,
		TTL:             s.vapid.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// pushPayload is what the service worker receives
type pushPayload struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	URL    string `json:"url"`
}

// WebPushAdapter pushes notifications to every browser the recipient
// subscribed in the notification's community. Subscriptions whose endpoint
// is gone (410 or 404) are deleted and count as delivered.
// A retry only resends to the subscriptions that failed.
type WebPushAdapter struct {
	sender PushSender
	store  SubscriptionStore
	prefs  PreferenceChecker
}

// NewWebPushAdapter creates a web push adapter
func NewWebPushAdapter(sender PushSender, store SubscriptionStore, prefs PreferenceChecker) *WebPushAdapter {
	return &WebPushAdapter{sender: sender, store: store, prefs: prefs}
}

func (a *WebPushAdapter) Name() string { return "webpush" }

func (a *WebPushAdapter) Deliver(ctx context.Context, job *Job) error {
	n := job.Notification
	if a.prefs != nil && !a.prefs.PushEnabled(n.RecipientID) {
		return nil
	}

	subs, err := a.store.ListForUser(ctx, n.RecipientID, n.CommunityID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Header: job.Message.Header,
		Body:   job.Message.Body,
		URL:    job.Message.URL,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	var firstErr error
	for _, sub := range subs {
		target := "webpush:" + sub.ID
		if job.Delivered(target) {
			continue
		}
		if err := a.push(ctx, sub, payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		job.MarkDelivered(target)
	}
	return firstErr
}

func (a *WebPushAdapter) push(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	status, err := a.sender.Send(ctx, sub, payload)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusGone || status == http.StatusNotFound:
		if err := a.store.Delete(ctx, sub.ID); err != nil {
			return err
		}
		metrics.RecordSubscriptionPruned()
		logger.Log.Info("Removed expired push subscription",
			zap.String("subscription_id", sub.ID),
			logger.WithUserID(sub.UserID),
			zap.Int("status", status),
		)
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("push service returned %d", status)
	case status >= 400:
		return fmt.Errorf("%w: push service returned %d", ErrPermanent, status)
	}
	return nil
}
