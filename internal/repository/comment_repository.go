package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
)

// CommentRepository handles comments on activities
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	// GetComment returns a live comment with its activity and parent loaded
	GetComment(ctx context.Context, communityID, id string) (*models.Comment, error)
	ListComments(ctx context.Context, activityID string) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	SoftDeleteComment(ctx context.Context, id string) error
	HardDeleteComment(ctx context.Context, id string) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.Content == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetComment(ctx context.Context, communityID, id string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Activity").
		Preload("Parent").
		Where("id = ? AND community_id = ? AND deleted_at IS NULL", id, communityID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if comment.Activity == nil || comment.Activity.IsDeleted() {
		return nil, ErrCommentNotFound
	}
	return &comment, nil
}

func (r *commentRepository) ListComments(ctx context.Context, activityID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("activity_id = ? AND deleted_at IS NULL", activityID).
		Order("created_at, id").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.ID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Model(comment).
		Select("content", "editor_id", "updated_at").
		Updates(comment).Error
}

// SoftDeleteComment hides a comment and drops its likes and flags
func (r *commentRepository) SoftDeleteComment(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Comment{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC()).Error
	if err != nil {
		return err
	}
	return deleteReactions(db, []string{id})
}

// HardDeleteComment removes a comment. Replies keep existing with no parent.
func (r *commentRepository) HardDeleteComment(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := deleteReactions(db, []string{id}); err != nil {
		return err
	}
	if err := db.Model(&models.Comment{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Comment{}).Error
}

func deleteReactions(db *gorm.DB, subjectIDs []string) error {
	if err := db.Where("subject_id IN ?", subjectIDs).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	return db.Where("subject_id IN ?", subjectIDs).Delete(&models.Flag{}).Error
}
