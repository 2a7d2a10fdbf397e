package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Butonix/localhub/internal/auth"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/social"
	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

var seedTags = []string{"movies", "gardening", "cycling", "music", "food", "events"}

// Seeder handles database seeding operations. Content goes through the
// social service so every seeded action produces its notifications.
type Seeder struct {
	db      *gorm.DB
	service *social.Service
	rnd     *rand.Rand
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, service *social.Service) *Seeder {
	// Note: Seed returns an error only for invalid sources, time.Now().UnixNano() is always valid
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:      db,
		service: service,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SeedTest creates a small, fixed community at domain: alice moderates,
// bob, charlie, diana and eve are members. The scripted actions leave
// every user with a few notifications.
func (s *Seeder) SeedTest(ctx context.Context, domain string) error {
	community, err := s.community(ctx, domain, "Localhub Test")
	if err != nil {
		return err
	}

	specs := []struct{ username, name string }{
		{"alice", "Alice Smith"},
		{"bob", "Bob Johnson"},
		{"charlie", "Charlie Brown"},
		{"diana", "Diana Prince"},
		{"eve", "Eve Wilson"},
	}
	actors := make(map[string]social.Actor, len(specs))
	for i, spec := range specs {
		user, err := s.user(ctx, spec.username, spec.username+"@example.com", spec.name)
		if err != nil {
			return err
		}
		role := models.RoleMember
		if i == 0 {
			role = models.RoleModerator
		}
		a, err := s.member(ctx, community, user, role)
		if err != nil {
			return err
		}
		actors[spec.username] = a
	}

	steps := []func() error{
		func() error {
			_, err := s.service.FollowUser(ctx, actors["diana"], actors["bob"].User.ID)
			return err
		},
		func() error {
			_, _, err := s.service.FollowTag(ctx, actors["charlie"], "movies")
			return err
		},
		func() error {
			activity, err := s.service.CreateActivity(ctx, actors["bob"], social.ActivityInput{
				Title:       "Film night on Friday",
				Description: "Bring snacks @eve #movies",
			})
			if err != nil {
				return err
			}
			if _, err := s.service.CreateComment(ctx, actors["eve"], activity.ID, social.CommentInput{
				Content: "Count me in! @alice are you coming?",
			}); err != nil {
				return err
			}
			_, err = s.service.LikeActivity(ctx, actors["diana"], activity.ID)
			return err
		},
		func() error {
			_, err := s.service.SendMessage(ctx, actors["alice"], social.MessageInput{
				RecipientID: actors["bob"].User.ID,
				Message:     "Thanks for organising!",
			})
			return err
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("failed to seed test content: %w", err)
		}
	}
	return nil
}

// SeedDev fills the community at domain with fake users and content
func (s *Seeder) SeedDev(ctx context.Context, domain string, userCount, activityCount int) error {
	community, err := s.community(ctx, domain, gofakeit.City()+" Local")
	if err != nil {
		return err
	}

	logger.Log.Info("Creating users...", zap.Int("count", userCount))
	actors := make([]social.Actor, 0, userCount)
	for i := 0; i < userCount; i++ {
		username := s.uniqueUsername()
		user, err := s.user(ctx, username, username+"@example.com", gofakeit.Name())
		if err != nil {
			return err
		}
		role := models.RoleMember
		if i < 2 {
			role = models.RoleModerator
		}
		a, err := s.member(ctx, community, user, role)
		if err != nil {
			return err
		}
		actors = append(actors, a)
	}
	if len(actors) < 2 {
		return fmt.Errorf("need at least two users, got %d", len(actors))
	}

	logger.Log.Info("Creating follows...")
	for _, a := range actors {
		for j := 0; j < 3; j++ {
			other := actors[s.rnd.Intn(len(actors))]
			if other.User.ID == a.User.ID {
				continue
			}
			if _, err := s.service.FollowUser(ctx, a, other.User.ID); err != nil {
				return err
			}
		}
		if _, _, err := s.service.FollowTag(ctx, a, seedTags[s.rnd.Intn(len(seedTags))]); err != nil {
			return err
		}
	}

	logger.Log.Info("Creating activities...", zap.Int("count", activityCount))
	for i := 0; i < activityCount; i++ {
		owner := actors[s.rnd.Intn(len(actors))]
		mentioned := actors[s.rnd.Intn(len(actors))]
		activity, err := s.service.CreateActivity(ctx, owner, social.ActivityInput{
			Title: gofakeit.HipsterSentence(),
			Description: fmt.Sprintf("%s @%s #%s",
				gofakeit.HipsterSentence(), mentioned.User.Username, seedTags[s.rnd.Intn(len(seedTags))]),
		})
		if err != nil {
			return fmt.Errorf("failed to seed activity: %w", err)
		}

		for j := 0; j < s.rnd.Intn(4); j++ {
			commenter := actors[s.rnd.Intn(len(actors))]
			if _, err := s.service.CreateComment(ctx, commenter, activity.ID, social.CommentInput{
				Content: gofakeit.HipsterSentence(),
			}); err != nil {
				return fmt.Errorf("failed to seed comment: %w", err)
			}
		}
		liker := actors[s.rnd.Intn(len(actors))]
		if liker.User.ID != owner.User.ID {
			if _, err := s.service.LikeActivity(ctx, liker, activity.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clean removes all data (use with caution!)
func (s *Seeder) Clean(ctx context.Context) error {
	// children before parents
	tables := []string{
		"notifications", "push_subscriptions", "notification_preferences",
		"likes", "flags", "comments", "poll_votes", "poll_answers", "event_attendees",
		"activities", "messages", "follows", "tag_follows", "blocks",
		"memberships", "communities", "users",
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) community(ctx context.Context, domain, name string) (*models.Community, error) {
	communities := repository.NewCommunityRepository(s.db)
	if existing, err := communities.GetCommunityByDomain(ctx, domain); err == nil {
		return existing, nil
	}
	community := &models.Community{Domain: strings.ToLower(domain), Name: name, Active: true}
	if err := communities.CreateCommunity(ctx, community); err != nil {
		return nil, fmt.Errorf("failed to create community %s: %w", domain, err)
	}
	return community, nil
}

// user returns the existing account with username or creates it
func (s *Seeder) user(ctx context.Context, username, email, name string) (*models.User, error) {
	users := repository.NewUserRepository(s.db)
	if existing, err := users.GetUserByUsername(ctx, username); err == nil {
		return existing, nil
	}
	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: email, Name: name, PasswordHash: hash}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	return user, nil
}

// member joins user to community through the service so moderators are
// notified, then applies role
func (s *Seeder) member(ctx context.Context, community *models.Community, user *models.User, role string) (social.Actor, error) {
	membership, _, err := s.service.Join(ctx, user, community)
	if err != nil {
		return social.Actor{}, fmt.Errorf("failed to join %s: %w", user.Username, err)
	}
	if role != membership.Role {
		if err := s.db.WithContext(ctx).Model(membership).Update("role", role).Error; err != nil {
			return social.Actor{}, err
		}
		membership.Role = role
	}
	return social.Actor{User: user, Community: community, Membership: membership}, nil
}

func (s *Seeder) uniqueUsername() string {
	users := repository.NewUserRepository(s.db)
	for {
		name := sanitizeUsername(gofakeit.Username())
		if len(name) < 3 {
			continue
		}
		if _, err := users.GetUserByUsername(context.Background(), name); err != nil {
			return name
		}
	}
}

// sanitizeUsername keeps the characters a mention can match
func sanitizeUsername(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 30 {
		out = out[:30]
	}
	return out
}
