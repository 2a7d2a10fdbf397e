package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Butonix/localhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCommunityNotFound  = errors.New("community not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

// CommunityRepository handles tenants and memberships
type CommunityRepository interface {
	CreateCommunity(ctx context.Context, community *models.Community) error
	GetCommunity(ctx context.Context, id string) (*models.Community, error)
	GetCommunityByDomain(ctx context.Context, domain string) (*models.Community, error)

	// GetMembership returns the active membership of userID, or ErrMembershipNotFound
	GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error)
	// Join creates or reactivates a membership. Returns true when the user
	// was not an active member before.
	Join(ctx context.Context, communityID, userID, role string) (*models.Membership, bool, error)
	Leave(ctx context.Context, communityID, userID string) error
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) CreateCommunity(ctx context.Context, community *models.Community) error {
	if community == nil || community.Domain == "" {
		return ErrInvalidInput
	}
	community.Domain = strings.ToLower(community.Domain)
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *communityRepository) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&community).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

// GetCommunityByDomain looks up an active community by host name
func (r *communityRepository) GetCommunityByDomain(ctx context.Context, domain string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Where("domain = ? AND active = ?", strings.ToLower(domain), true).
		First(&community).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ? AND active = ?", communityID, userID, true).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *communityRepository) Join(ctx context.Context, communityID, userID, role string) (*models.Membership, bool, error) {
	if role == "" {
		role = models.RoleMember
	}
	membership := &models.Membership{
		CommunityID: communityID,
		MemberID:    userID,
		Role:        role,
		Active:      true,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(membership)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return membership, true, nil
	}

	// already a row: reactivate it if needed
	var existing models.Membership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND member_id = ?", communityID, userID).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	if existing.Active {
		return &existing, false, nil
	}
	update := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("id = ? AND active = ?", existing.ID, false).
		Update("active", true)
	if update.Error != nil {
		return nil, false, update.Error
	}
	existing.Active = true
	return &existing, update.RowsAffected > 0, nil
}

func (r *communityRepository) Leave(ctx context.Context, communityID, userID string) error {
	return r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("community_id = ? AND member_id = ?", communityID, userID).
		Update("active", false).Error
}
