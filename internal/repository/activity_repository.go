package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrActivityNotFound   = errors.New("activity not found")
	ErrPollAnswerNotFound = errors.New("poll answer not found")
)

// ActivityRepository handles posts, events, polls and photos
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *models.Activity, answers []string) error
	// GetActivity returns a live activity in the community
	GetActivity(ctx context.Context, communityID, id string) (*models.Activity, error)
	// GetAnyActivity also returns soft deleted activities
	GetAnyActivity(ctx context.Context, communityID, id string) (*models.Activity, error)
	ListActivities(ctx context.Context, communityID string, limit, offset int) ([]*models.Activity, error)
	UpdateActivity(ctx context.Context, activity *models.Activity) error
	SoftDeleteActivity(ctx context.Context, id string) error
	// HardDeleteActivity removes the activity and everything hanging off it.
	// Returns the ids of the comments removed with it.
	HardDeleteActivity(ctx context.Context, id string) ([]string, error)

	GetPollAnswers(ctx context.Context, pollID string) ([]*models.PollAnswer, error)
	Vote(ctx context.Context, pollID, answerID, voterID string) (bool, error)
	Attend(ctx context.Context, eventID, userID string) (bool, error)
	// CancelEvent marks an event canceled. Returns false if it already was.
	CancelEvent(ctx context.Context, eventID string) (bool, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) CreateActivity(ctx context.Context, activity *models.Activity, answers []string) error {
	if activity == nil || !models.IsActivityKind(activity.Kind) {
		return ErrInvalidInput
	}
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return err
	}
	if activity.Kind != models.ActivityPoll || len(answers) == 0 {
		return nil
	}
	rows := make([]*models.PollAnswer, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, &models.PollAnswer{PollID: activity.ID, Description: a})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *activityRepository) GetActivity(ctx context.Context, communityID, id string) (*models.Activity, error) {
	return r.get(ctx, r.db.WithContext(ctx).Where("deleted_at IS NULL"), communityID, id)
}

func (r *activityRepository) GetAnyActivity(ctx context.Context, communityID, id string) (*models.Activity, error) {
	return r.get(ctx, r.db.WithContext(ctx), communityID, id)
}

func (r *activityRepository) get(ctx context.Context, q *gorm.DB, communityID, id string) (*models.Activity, error) {
	var activity models.Activity
	err := q.Preload("Owner").
		Where("id = ? AND community_id = ?", id, communityID).
		First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) ListActivities(ctx context.Context, communityID string, limit, offset int) ([]*models.Activity, error) {
	var activities []*models.Activity
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("community_id = ? AND deleted_at IS NULL", communityID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	return activities, err
}

func (r *activityRepository) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	if activity == nil || activity.ID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Model(activity).
		Select("title", "description", "url", "image", "location", "starts_at", "editor_id", "updated_at").
		Updates(activity).Error
}

// SoftDeleteActivity hides an activity and drops its likes and flags
func (r *activityRepository) SoftDeleteActivity(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Activity{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC()).Error
	if err != nil {
		return err
	}
	return deleteReactions(db, []string{id})
}

func (r *activityRepository) HardDeleteActivity(ctx context.Context, id string) ([]string, error) {
	db := r.db.WithContext(ctx)

	var commentIDs []string
	if err := db.Model(&models.Comment{}).Where("activity_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
		return nil, err
	}

	subjectIDs := append([]string{id}, commentIDs...)
	if err := deleteReactions(db, subjectIDs); err != nil {
		return nil, err
	}
	cascade := []struct {
		model interface{}
		query string
		args  interface{}
	}{
		{&models.Comment{}, "activity_id = ?", id},
		{&models.PollVote{}, "poll_id = ?", id},
		{&models.PollAnswer{}, "poll_id = ?", id},
		{&models.EventAttendee{}, "event_id = ?", id},
	}
	for _, c := range cascade {
		if err := db.Where(c.query, c.args).Delete(c.model).Error; err != nil {
			return nil, err
		}
	}

	// reshares outlive the original
	if err := db.Model(&models.Activity{}).Where("reshare_of_id = ?", id).Update("reshare_of_id", nil).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id = ?", id).Delete(&models.Activity{}).Error; err != nil {
		return nil, err
	}
	return commentIDs, nil
}

func (r *activityRepository) GetPollAnswers(ctx context.Context, pollID string) ([]*models.PollAnswer, error) {
	var answers []*models.PollAnswer
	err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Order("created_at, id").Find(&answers).Error
	return answers, err
}

// Vote records a vote. A user votes at most once per poll.
func (r *activityRepository) Vote(ctx context.Context, pollID, answerID, voterID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PollAnswer{}).
		Where("id = ? AND poll_id = ?", answerID, pollID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrPollAnswerNotFound
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PollVote{PollID: pollID, AnswerID: answerID, VoterID: voterID})
	return result.RowsAffected > 0, result.Error
}

func (r *activityRepository) Attend(ctx context.Context, eventID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.EventAttendee{EventID: eventID, UserID: userID})
	return result.RowsAffected > 0, result.Error
}

func (r *activityRepository) CancelEvent(ctx context.Context, eventID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Activity{}).
		Where("id = ? AND kind = ? AND canceled IS NULL", eventID, models.ActivityEvent).
		Update("canceled", time.Now().UTC())
	return result.RowsAffected > 0, result.Error
}
