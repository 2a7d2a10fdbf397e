package repository

import (
	"context"
	"fmt"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"gorm.io/gorm"
)

// subjectLoader resolves notification subjects with one query per kind.
// Soft deleted subjects still load: their notifications were purged when
// they were deleted, except the delete notice sent to the owner. Only
// hard deleted subjects come back missing.
type subjectLoader struct {
	db *gorm.DB
}

// NewSubjectLoader creates a loader for inbox subjects
func NewSubjectLoader(db *gorm.DB) notifications.Loader {
	return &subjectLoader{db: db}
}

func (l *subjectLoader) Load(ctx context.Context, refs []notifications.SubjectRef) (map[notifications.SubjectRef]notifications.Subject, error) {
	byKind := make(map[notifications.SubjectKind][]string)
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}

	out := make(map[notifications.SubjectRef]notifications.Subject, len(refs))
	for kind, ids := range byKind {
		ids = uniqueInOrder(ids)
		var err error
		switch {
		case kind.IsActivity():
			err = l.loadActivities(ctx, kind, ids, out)
		case kind == notifications.KindComment:
			err = l.loadComments(ctx, ids, out)
		case kind == notifications.KindMessage:
			err = l.loadMessages(ctx, ids, out)
		case kind == notifications.KindUser:
			err = l.loadUsers(ctx, ids, out)
		default:
			// unknown kinds are dangling by definition
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s subjects: %w", kind, err)
		}
	}
	return out, nil
}

func (l *subjectLoader) loadActivities(ctx context.Context, kind notifications.SubjectKind, ids []string, out map[notifications.SubjectRef]notifications.Subject) error {
	var rows []*models.Activity
	err := l.db.WithContext(ctx).
		Where("id IN ? AND kind = ?", ids, string(kind)).
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, a := range rows {
		s := notifications.FromActivity(a)
		out[s.Ref()] = s
	}
	return nil
}

func (l *subjectLoader) loadComments(ctx context.Context, ids []string, out map[notifications.SubjectRef]notifications.Subject) error {
	var rows []*models.Comment
	err := l.db.WithContext(ctx).
		Preload("Activity").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, c := range rows {
		if c.Activity == nil {
			continue
		}
		s := notifications.FromComment(c, c.Activity, nil)
		out[s.Ref()] = s
	}
	return nil
}

func (l *subjectLoader) loadMessages(ctx context.Context, ids []string, out map[notifications.SubjectRef]notifications.Subject) error {
	var rows []*models.Message
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return err
	}
	for _, m := range rows {
		s := notifications.FromMessage(m)
		out[s.Ref()] = s
	}
	return nil
}

func (l *subjectLoader) loadUsers(ctx context.Context, ids []string, out map[notifications.SubjectRef]notifications.Subject) error {
	var rows []*models.User
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return err
	}
	for _, u := range rows {
		s := notifications.FromUser(u, "")
		out[s.Ref()] = s
	}
	return nil
}
