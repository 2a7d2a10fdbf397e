package repository

import (
	"context"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository stores likes and flags on activities and comments
type ReactionRepository interface {
	// Like reports whether a new like was recorded
	Like(ctx context.Context, like *models.Like) (bool, error)
	Unlike(ctx context.Context, userID, subjectKind, subjectID string) error
	// Flag reports whether a new flag was recorded
	Flag(ctx context.Context, flag *models.Flag) (bool, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Like(ctx context.Context, like *models.Like) (bool, error) {
	if like == nil || like.UserID == "" || like.SubjectID == "" {
		return false, ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	return result.RowsAffected > 0, result.Error
}

func (r *reactionRepository) Unlike(ctx context.Context, userID, subjectKind, subjectID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND subject_kind = ? AND subject_id = ?", userID, subjectKind, subjectID).
		Delete(&models.Like{}).Error
}

func (r *reactionRepository) Flag(ctx context.Context, flag *models.Flag) (bool, error) {
	if flag == nil || flag.UserID == "" || flag.SubjectID == "" {
		return false, ErrInvalidInput
	}
	if flag.Reason == "" {
		flag.Reason = models.FlagSpam
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(flag)
	return result.RowsAffected > 0, result.Error
}
