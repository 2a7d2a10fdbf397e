package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Message is the rendered, transport-neutral form of a notification
type Message struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	URL    string `json:"url"`
}

// Dispatcher hands finished notifications to asynchronous delivery
type Dispatcher interface {
	Dispatch(n *models.Notification, msg Message) error
}

// Invalidator drops cached unread counts
type Invalidator interface {
	InvalidateUnread(ctx context.Context, communityID string, userIDs ...string)
}

// DirectoryFactory binds a directory to a database handle, usually the
// transaction the fan-out runs in
type DirectoryFactory func(db *gorm.DB) Directory

// Notifier runs fan-outs: resolve, deduplicate, persist, dispatch
type Notifier struct {
	db          *gorm.DB
	registry    *Registry
	scopes      *Scopes
	directory   DirectoryFactory
	dispatcher  Dispatcher
	invalidator Invalidator
	baseURL     string
}

// NewNotifier creates a notifier
func NewNotifier(db *gorm.DB, registry *Registry, scopes *Scopes, directory DirectoryFactory) *Notifier {
	if scopes == nil {
		scopes = DefaultScopes()
	}
	return &Notifier{
		db:        db,
		registry:  registry,
		scopes:    scopes,
		directory: directory,
	}
}

// SetDispatcher sets the delivery dispatcher. Without one, nothing is delivered.
func (n *Notifier) SetDispatcher(d Dispatcher) {
	n.dispatcher = d
}

// SetInvalidator sets the unread-count cache invalidator
func (n *Notifier) SetInvalidator(i Invalidator) {
	n.invalidator = i
}

// SetBaseURL sets the absolute prefix used for links in delivered messages
func (n *Notifier) SetBaseURL(baseURL string) {
	n.baseURL = strings.TrimRight(baseURL, "/")
}

// Registry returns the subject registry
func (n *Notifier) Registry() *Registry {
	return n.registry
}

// Scopes returns the verb scope configuration
func (n *Notifier) Scopes() *Scopes {
	return n.scopes
}

// Notify runs a fan-out in its own transaction and dispatches the result
// after commit
func (n *Notifier) Notify(ctx context.Context, nctx Context, subject Subject, event Event) ([]*models.Notification, error) {
	var created []*models.Notification
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = n.Create(ctx, tx, nctx, subject, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.Dispatch(ctx, nctx, subject, created)
	return created, nil
}

// Create resolves recipients and inserts the notification rows inside tx.
// The caller commits tx together with its own subject write and then calls
// Dispatch with the returned rows.
func (n *Notifier) Create(ctx context.Context, tx *gorm.DB, nctx Context, subject Subject, event Event) ([]*models.Notification, error) {
	ref := subject.Ref()
	ctx, span := telemetry.TraceFanout(ctx, string(ref.Kind), ref.ID, string(event))
	defer span.End()

	start := time.Now()
	resolver := NewResolver(n.directory(tx), n.scopes)
	planned, err := resolver.Plan(ctx, nctx, subject, event)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	communityID := nctx.CommunityID
	if communityID == "" {
		communityID = subject.CommunityID()
	}

	rows := make([]*models.Notification, 0, len(planned))
	for _, c := range planned {
		if !n.registry.Allows(ref.Kind, c.Verb) {
			err := fmt.Errorf("verb %q is not registered for %s", c.Verb, ref.Kind)
			telemetry.RecordError(span, err)
			return nil, err
		}
		rows = append(rows, &models.Notification{
			ActorID:     c.ActorID,
			RecipientID: c.RecipientID,
			CommunityID: communityID,
			SubjectKind: string(ref.Kind),
			SubjectID:   ref.ID,
			Verb:        c.Verb,
		})
	}

	if len(rows) > 0 {
		if err := tx.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to create notifications: %w", err)
		}
	}

	for _, row := range rows {
		metrics.RecordNotificationCreated(row.SubjectKind, row.Verb)
	}
	metrics.RecordFanout(string(ref.Kind), string(event), len(rows), time.Since(start))
	span.SetAttributes(attribute.Int("fanout.recipients", len(rows)))

	logger.Log.Debug("Notification fan-out",
		zap.String("subject", ref.String()),
		zap.String("event", string(event)),
		logger.WithCommunityID(communityID),
		zap.Int("recipients", len(rows)),
	)

	return rows, nil
}

// Dispatch renders each notification and hands it to the dispatcher.
// Failures are logged and never returned: delivery is best-effort.
func (n *Notifier) Dispatch(ctx context.Context, nctx Context, subject Subject, created []*models.Notification) {
	if len(created) == 0 {
		return
	}

	if n.invalidator != nil {
		recipients := make([]string, 0, len(created))
		for _, row := range created {
			recipients = append(recipients, row.RecipientID)
		}
		n.invalidator.InvalidateUnread(ctx, created[0].CommunityID, recipients...)
	}

	if n.dispatcher == nil {
		return
	}

	actorName := ""
	if nctx.Actor != nil {
		actorName = nctx.Actor.DisplayName()
	}

	for _, row := range created {
		if row.Actor == nil && nctx.Actor != nil {
			row.Actor = nctx.Actor
		}
		msg := n.Render(row.Verb, actorName, subject)
		if err := n.dispatcher.Dispatch(row, msg); err != nil {
			metrics.RecordDeliveryDropped("enqueue_failed")
			logger.Log.Warn("Failed to queue notification delivery",
				zap.String("notification_id", row.ID),
				logger.WithVerb(row.Verb),
				zap.Error(err),
			)
		}
	}
}

// Render builds the message for a verb on a subject
func (n *Notifier) Render(verb, actorName string, subject Subject) Message {
	kind := subject.Ref().Kind
	return Message{
		Header: n.registry.Header(kind, verb, actorName),
		Body:   n.registry.Body(subject),
		URL:    n.baseURL + subject.Path(),
	}
}
