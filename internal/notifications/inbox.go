package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"github.com/Butonix/localhub/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListQuery selects one page of a recipient's inbox in a community
type ListQuery struct {
	CommunityID string
	RecipientID string
	// GlobalVerbs are shown regardless of the community they were created in
	GlobalVerbs []string
	Limit       int
	Offset      int
}

// Store persists notification state. Every method that takes a recipient
// only touches that recipient's rows.
type Store interface {
	List(ctx context.Context, q ListQuery) ([]*models.Notification, int64, error)
	UnreadCount(ctx context.Context, communityID, recipientID string, globalVerbs []string) (int64, error)
	MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, communityID, recipientID string, globalVerbs []string) ([]*models.Notification, error)
	MarkSubjectRead(ctx context.Context, recipientID, subjectKind, subjectID string) (int64, error)
	Delete(ctx context.Context, recipientID, id string) (*models.Notification, error)
	DeleteAll(ctx context.Context, communityID, recipientID string, globalVerbs []string) (int64, error)
}

// Loader resolves subject references. Missing or deleted subjects are
// simply absent from the result.
type Loader interface {
	Load(ctx context.Context, refs []SubjectRef) (map[SubjectRef]Subject, error)
}

// UnreadCounter caches unread counts
type UnreadCounter interface {
	Invalidator
	GetUnread(ctx context.Context, communityID, recipientID string) (int64, bool)
	SetUnread(ctx context.Context, communityID, recipientID string, count int64)
}

// ReadHook runs after a notification of a given kind is marked read
type ReadHook func(ctx context.Context, n *models.Notification) error

// Item is one inbox entry with its resolved subject
type Item struct {
	Notification *models.Notification `json:"notification"`
	Subject      Subject              `json:"-"`
	Message      Message              `json:"message"`
}

// Page is one page of an inbox
type Page struct {
	Items    []Item `json:"items"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Total    int64  `json:"total"`
	HasNext  bool   `json:"has_next"`
	HasPrev  bool   `json:"has_prev"`
}

// Inbox manages the unread/read lifecycle and deletion of notifications
type Inbox struct {
	store    Store
	loader   Loader
	registry *Registry
	scopes   *Scopes
	cache    UnreadCounter

	hooksMu sync.RWMutex
	hooks   map[SubjectKind][]ReadHook
}

// NewInbox creates an inbox service
func NewInbox(store Store, loader Loader, registry *Registry, scopes *Scopes) *Inbox {
	if scopes == nil {
		scopes = DefaultScopes()
	}
	return &Inbox{
		store:    store,
		loader:   loader,
		registry: registry,
		scopes:   scopes,
		hooks:    make(map[SubjectKind][]ReadHook),
	}
}

// SetCache sets the unread count cache
func (i *Inbox) SetCache(cache UnreadCounter) {
	i.cache = cache
}

// OnRead registers a hook for notifications of a kind being marked read
func (i *Inbox) OnRead(kind SubjectKind, hook ReadHook) {
	i.hooksMu.Lock()
	defer i.hooksMu.Unlock()
	i.hooks[kind] = append(i.hooks[kind], hook)
}

// List returns one page of the inbox, unread first then newest first.
// Notifications whose subject no longer exists are skipped.
func (i *Inbox) List(ctx context.Context, communityID, recipientID string, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, total, err := i.store.List(ctx, ListQuery{
		CommunityID: communityID,
		RecipientID: recipientID,
		GlobalVerbs: i.scopes.GlobalVerbs(),
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	refs := make([]SubjectRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, RefOf(row))
	}
	subjects, err := i.loader.Load(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification subjects: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		subject, ok := subjects[RefOf(row)]
		if !ok {
			logger.Log.Debug("Skipping notification with dangling subject",
				zap.String("notification_id", row.ID),
				zap.String("subject", RefOf(row).String()),
			)
			continue
		}
		actorName := ""
		if row.Actor != nil {
			actorName = row.Actor.DisplayName()
		}
		items = append(items, Item{
			Notification: row,
			Subject:      subject,
			Message: Message{
				Header: i.registry.Header(RefOf(row).Kind, row.Verb, actorName),
				Body:   i.registry.Body(subject),
				URL:    subject.Path(),
			},
		})
	}

	return &Page{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  int64(page*pageSize) < total,
		HasPrev:  page > 1,
	}, nil
}

// UnreadCount returns the number of unread notifications, cached when possible
func (i *Inbox) UnreadCount(ctx context.Context, communityID, recipientID string) (int64, error) {
	if i.cache != nil {
		if count, ok := i.cache.GetUnread(ctx, communityID, recipientID); ok {
			return count, nil
		}
	}
	count, err := i.store.UnreadCount(ctx, communityID, recipientID, i.scopes.GlobalVerbs())
	if err != nil {
		return 0, err
	}
	if i.cache != nil {
		i.cache.SetUnread(ctx, communityID, recipientID, count)
	}
	return count, nil
}

// MarkRead flips a single notification to read
func (i *Inbox) MarkRead(ctx context.Context, communityID, recipientID, id string) (*models.Notification, error) {
	n, err := i.store.MarkRead(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	metrics.RecordRead("single", 1)
	i.invalidate(ctx, communityID, recipientID)
	i.runHooks(ctx, n)
	return n, nil
}

// MarkAllRead flips every unread notification in the inbox to read
func (i *Inbox) MarkAllRead(ctx context.Context, communityID, recipientID string) (int, error) {
	flipped, err := i.store.MarkAllRead(ctx, communityID, recipientID, i.scopes.GlobalVerbs())
	if err != nil {
		return 0, err
	}
	metrics.RecordRead("bulk", len(flipped))
	i.invalidate(ctx, communityID, recipientID)
	for _, n := range flipped {
		i.runHooks(ctx, n)
	}
	return len(flipped), nil
}

// MarkSubjectRead marks every notification the recipient has about a
// subject as read. Used when the subject is viewed and when a private
// message is read. Read hooks are not run.
func (i *Inbox) MarkSubjectRead(ctx context.Context, communityID, recipientID string, ref SubjectRef) (int64, error) {
	count, err := i.store.MarkSubjectRead(ctx, recipientID, string(ref.Kind), ref.ID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.RecordRead("subject", int(count))
		i.invalidate(ctx, communityID, recipientID)
	}
	return count, nil
}

// Delete removes a single notification
func (i *Inbox) Delete(ctx context.Context, communityID, recipientID, id string) error {
	if _, err := i.store.Delete(ctx, recipientID, id); err != nil {
		return err
	}
	metrics.RecordDeleted("single", 1)
	i.invalidate(ctx, communityID, recipientID)
	return nil
}

// DeleteAll removes every notification in the inbox
func (i *Inbox) DeleteAll(ctx context.Context, communityID, recipientID string) (int64, error) {
	count, err := i.store.DeleteAll(ctx, communityID, recipientID, i.scopes.GlobalVerbs())
	if err != nil {
		return 0, err
	}
	metrics.RecordDeleted("bulk", count)
	i.invalidate(ctx, communityID, recipientID)
	return count, nil
}

// Purge reports what PurgeSubject deleted
type Purge struct {
	Deleted    int64
	Recipients []InboxKey
}

// InboxKey identifies one recipient's inbox in a community
type InboxKey struct {
	RecipientID string
	CommunityID string
}

// PurgeSubject deletes every notification about a subject inside tx. It
// backs both soft deletes and the cascade of hard deletes. Cached counts are
// left alone: call InvalidatePurge once tx has committed.
func (i *Inbox) PurgeSubject(ctx context.Context, tx *gorm.DB, ref SubjectRef) (*Purge, error) {
	var affected []InboxKey
	scope := tx.WithContext(ctx).Model(&models.Notification{}).
		Where("subject_kind = ? AND subject_id = ?", string(ref.Kind), ref.ID)
	if err := scope.Distinct("recipient_id", "community_id").Find(&affected).Error; err != nil {
		return nil, fmt.Errorf("failed to find notifications for %s: %w", ref, err)
	}

	result := tx.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ?", string(ref.Kind), ref.ID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to purge notifications for %s: %w", ref, result.Error)
	}

	metrics.RecordDeleted("purge", result.RowsAffected)
	return &Purge{Deleted: result.RowsAffected, Recipients: affected}, nil
}

// InvalidatePurge drops the cached unread counts of every inbox a committed
// purge touched
func (i *Inbox) InvalidatePurge(ctx context.Context, p *Purge) {
	if p == nil {
		return
	}
	for _, key := range p.Recipients {
		i.invalidate(ctx, key.CommunityID, key.RecipientID)
	}
}

// InvalidateUnread drops cached unread counts, e.g. after a block changes
// which notifications are visible
func (i *Inbox) InvalidateUnread(ctx context.Context, communityID string, userIDs ...string) {
	if i.cache != nil {
		i.cache.InvalidateUnread(ctx, communityID, userIDs...)
	}
}

func (i *Inbox) invalidate(ctx context.Context, communityID, recipientID string) {
	i.InvalidateUnread(ctx, communityID, recipientID)
}

func (i *Inbox) runHooks(ctx context.Context, n *models.Notification) {
	i.hooksMu.RLock()
	hooks := i.hooks[SubjectKind(n.SubjectKind)]
	i.hooksMu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, n); err != nil {
			logger.Log.Warn("Notification read hook failed",
				zap.String("notification_id", n.ID),
				zap.String("subject", RefOf(n).String()),
				zap.Error(err),
			)
		}
	}
}
