// Package kernel wires the localhub services together from configuration.
// It consolidates all services and provides type-safe access to dependencies.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Butonix/localhub/internal/auth"
	"github.com/Butonix/localhub/internal/cache"
	"github.com/Butonix/localhub/internal/config"
	"github.com/Butonix/localhub/internal/delivery"
	"github.com/Butonix/localhub/internal/email"
	"github.com/Butonix/localhub/internal/handlers"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/repository"
	"github.com/Butonix/localhub/internal/social"
	"github.com/Butonix/localhub/internal/validation"
	"github.com/Butonix/localhub/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Overrides replaces external clients, mainly so tests can wire fakes.
// Nil fields are built from the configuration.
type Overrides struct {
	Mailer     email.Mailer
	PushSender delivery.PushSender
	Events     delivery.MessageWriter
	Redis      *cache.RedisClient
}

// Kernel holds all application dependencies and their shutdown hooks
type Kernel struct {
	cfg *config.Config
	db  *gorm.DB

	redis  *cache.RedisClient
	unread *cache.UnreadCache

	registry *notifications.Registry
	scopes   *notifications.Scopes
	notifier *notifications.Notifier
	inbox    *notifications.Inbox
	service  *social.Service
	queue    *delivery.Queue
	hub      *websocket.Hub

	auth          *auth.Service
	communities   repository.CommunityRepository
	preferences   *models.NotificationPreferencesChecker
	subscriptions repository.PushSubscriptionRepository
	validator     *validation.ServiceValidator

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
}

// Build wires every service over db. The delivery queue is started; call
// Cleanup to drain it and close external clients.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, overrides Overrides) (*Kernel, error) {
	k := &Kernel{cfg: cfg, db: db}

	k.registry = notifications.DefaultRegistry()
	k.scopes = notifications.NewScopes(cfg.GlobalVerbs)
	if err := validation.RegisterVerbValidator(k.registry); err != nil {
		return nil, err
	}

	k.redis = overrides.Redis
	if k.redis == nil && cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Log.Warn("Redis unavailable, unread counts will not be cached", zap.Error(err))
		} else {
			k.redis = client
		}
	}
	if k.redis != nil {
		k.OnCleanup(func(context.Context) error { return k.redis.Close() })
	}
	k.unread = cache.NewUnreadCache(k.redis, cfg.UnreadTTL)

	k.inbox = notifications.NewInbox(
		repository.NewNotificationRepository(db),
		repository.NewSubjectLoader(db),
		k.registry,
		k.scopes,
	)
	k.inbox.SetCache(k.unread)

	k.notifier = notifications.NewNotifier(db, k.registry, k.scopes, repository.NewDirectory)
	k.notifier.SetInvalidator(k.unread)
	if cfg.BaseURL != "" {
		k.notifier.SetBaseURL(cfg.BaseURL)
	}
	k.service = social.NewService(db, k.notifier, k.inbox)

	emailVerbs := cfg.EmailVerbs
	if len(emailVerbs) == 0 {
		emailVerbs = k.registry.AllVerbs()
	}
	k.preferences = models.NewNotificationPreferencesChecker(db, emailVerbs)
	k.subscriptions = repository.NewPushSubscriptionRepository(db)
	k.auth = auth.NewService(db, cfg.JWTSecret, cfg.SessionTTL)
	k.communities = repository.NewCommunityRepository(db)

	k.hub = websocket.NewHub()
	go k.hub.Run()
	k.OnCleanup(k.hub.Stop)

	if err := k.buildQueue(ctx, overrides); err != nil {
		k.Cleanup(ctx)
		return nil, err
	}

	k.validator = validation.NewServiceValidator()
	k.validator.Register("database", validation.DatabaseCheck(db), true)
	if k.redis != nil {
		k.validator.Register("redis", validation.PingCheck(k.redis), false)
	}
	if cfg.EventsEnabled() && overrides.Events == nil {
		k.validator.Register("kafka", validation.KafkaCheck(splitList(cfg.KafkaBrokers)), false)
	}

	return k, nil
}

func (k *Kernel) buildQueue(ctx context.Context, overrides Overrides) error {
	k.queue = delivery.NewQueue(delivery.Options{
		Workers:     k.cfg.DeliveryWorkers,
		Buffer:      k.cfg.DeliveryBuffer,
		MaxAttempts: k.cfg.DeliveryMaxAttempts,
	})

	mailer := overrides.Mailer
	if mailer == nil && k.cfg.EmailEnabled() {
		ses, err := email.NewSESMailer(k.cfg.AWSRegion, k.cfg.EmailFrom, k.cfg.EmailFromName)
		if err != nil {
			return fmt.Errorf("failed to create mailer: %w", err)
		}
		mailer = ses
	}
	if mailer != nil {
		dir := deliveryDirectory{
			users:       repository.NewUserRepository(k.db),
			communities: repository.NewCommunityRepository(k.db),
		}
		k.queue.AddAdapter(delivery.NewEmailAdapter(mailer, k.preferences, dir, k.cfg.BaseURL))
	}

	sender := overrides.PushSender
	if sender == nil && k.cfg.PushEnabled() {
		sender = delivery.NewWebPushSender(delivery.VAPIDConfig{
			PublicKey:  k.cfg.VAPIDPublicKey,
			PrivateKey: k.cfg.VAPIDPrivateKey,
			Subscriber: k.cfg.VAPIDSubscriber,
		})
	}
	if sender != nil {
		k.queue.AddAdapter(delivery.NewWebPushAdapter(sender, k.subscriptions, k.preferences))
	}

	writer := overrides.Events
	if writer == nil && k.cfg.EventsEnabled() {
		writer = delivery.NewKafkaWriter(k.cfg.KafkaBrokers, k.cfg.KafkaTopic)
	}
	if writer != nil {
		events := delivery.NewEventAdapter(writer)
		k.queue.AddAdapter(events)
		k.OnCleanup(func(context.Context) error { return events.Close() })
	}

	k.queue.AddAdapter(delivery.NewLiveAdapter(k.hub, k.inbox))

	k.notifier.SetDispatcher(k.queue)
	k.queue.Start()
	// registered last so it runs first: drain before closing the clients
	// the adapters use
	k.OnCleanup(k.queue.Stop)
	return nil
}

// Handlers builds the HTTP handlers over the wired services
func (k *Kernel) Handlers() *handlers.Handlers {
	h := handlers.NewHandlers(k.service, k.inbox, k.registry)
	h.SetAuthService(k.auth)
	h.SetPreferences(k.preferences)
	h.SetPushSubscriptions(k.subscriptions, k.cfg.VAPIDPublicKey)
	h.SetServiceValidator(k.validator)
	h.SetSessionCookie(k.cfg.IsProduction(), k.cfg.SessionTTL)
	return h
}

// DB returns the database connection
func (k *Kernel) DB() *gorm.DB { return k.db }

// Config returns the configuration the kernel was built from
func (k *Kernel) Config() *config.Config { return k.cfg }

// Registry returns the subject and verb registry
func (k *Kernel) Registry() *notifications.Registry { return k.registry }

// Notifier returns the fan-out engine
func (k *Kernel) Notifier() *notifications.Notifier { return k.notifier }

// Inbox returns the notification lifecycle service
func (k *Kernel) Inbox() *notifications.Inbox { return k.inbox }

// Service returns the community actions service
func (k *Kernel) Service() *social.Service { return k.service }

// Queue returns the delivery queue
func (k *Kernel) Queue() *delivery.Queue { return k.queue }

// Live returns the live inbox handler
func (k *Kernel) Live() *websocket.Handler {
	return websocket.NewHandler(k.hub, k.inbox, k.cfg.CORSOrigins)
}

// Auth returns the session service
func (k *Kernel) Auth() *auth.Service { return k.auth }

// Communities resolves tenants and memberships for the middleware
func (k *Kernel) Communities() repository.CommunityRepository { return k.communities }

// Validator returns the dependency checks
func (k *Kernel) Validator() *validation.ServiceValidator { return k.validator }

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (k *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupFuncs = append(k.cleanupFuncs, fn)
	return k
}

// Cleanup runs the cleanup functions in reverse order of registration.
// Failures are logged and the first one is returned.
func (k *Kernel) Cleanup(ctx context.Context) error {
	k.mu.Lock()
	funcs := k.cleanupFuncs
	k.cleanupFuncs = nil
	k.mu.Unlock()

	var first error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// deliveryDirectory serves the email adapter's user and community lookups
type deliveryDirectory struct {
	users       repository.UserRepository
	communities repository.CommunityRepository
}

func (d deliveryDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return d.users.GetUser(ctx, userID)
}

func (d deliveryDirectory) GetCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	return d.communities.GetCommunity(ctx, communityID)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
