package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Butonix/localhub/internal/config"
	"github.com/Butonix/localhub/internal/database"
	"github.com/Butonix/localhub/internal/handlers"
	"github.com/Butonix/localhub/internal/kernel"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"github.com/Butonix/localhub/internal/middleware"
	"github.com/Butonix/localhub/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== localhub server starting ===", zap.String("environment", cfg.Environment))

	ctx := context.Background()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	metrics.Initialize()

	// Initialize database
	if err := database.Initialize(database.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DBDSN,
		Debug:   cfg.DBDebug,
		Tracing: tp != nil,
	}); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	k, err := kernel.Build(ctx, cfg, database.DB, kernel.Overrides{})
	if err != nil {
		logger.FatalWithFields("Failed to wire services", err)
	}
	if err := k.Validator().ValidateServices(ctx); err != nil {
		logger.FatalWithFields("Service validation failed", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(k)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("localhub backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain queued deliveries after the last request has enqueued its work
	if err := k.Cleanup(shutdownCtx); err != nil {
		logger.Log.Warn("Cleanup finished with errors", zap.Error(err))
	}
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}

func setupRouter(k *kernel.Kernel) *gin.Engine {
	cfg := k.Config()
	h := k.Handlers()
	communities := k.Communities()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.TracingMiddleware(cfg.ServiceName))
	r.Use(middleware.SpanAttributesMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/api/v1/notifications/live"})))

	// Host independent endpoints
	r.GET("/health", h.Health)
	r.GET("/metrics", handlers.Metrics())

	// Everything else belongs to the community served at the request's host
	site := r.Group("")
	site.Use(middleware.CommunityMiddleware(communities))

	requireAuth := middleware.AuthMiddleware(k.Auth(), communities)

	site.GET(middleware.JoinPath, middleware.OptionalAuthMiddleware(k.Auth(), communities), h.JoinPage)

	api := site.Group("/api/v1")
	{
		// Authentication routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", middleware.RateLimitAuth(), h.Register)
			authGroup.POST("/login", middleware.RateLimitAuth(), h.Login)
			authGroup.POST("/logout", h.Logout)
		}

		api.POST("/community/join", requireAuth, h.JoinCommunity)

		// Routes below need an active membership in the community
		members := api.Group("")
		members.Use(requireAuth, middleware.RequireMember())

		notifications := members.Group("/notifications")
		{
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread-count", h.GetUnreadCount)
			notifications.GET("/live", k.Live().HandleInbox)
			notifications.POST("/read", h.MarkAllNotificationsRead)
			notifications.POST("/:id/read", h.MarkNotificationRead)
			notifications.DELETE("", h.DeleteAllNotifications)
			notifications.DELETE("/:id", h.DeleteNotification)

			notifications.POST("/subscribe", middleware.RateLimitSubscribe(), h.SubscribePush)
			notifications.POST("/unsubscribe", middleware.RateLimitSubscribe(), h.UnsubscribePush)
			notifications.GET("/vapid-key", h.GetVAPIDPublicKey)

			notifications.GET("/preferences", h.GetNotificationPreferences)
			notifications.PUT("/preferences", h.UpdateNotificationPreferences)
		}

		activities := members.Group("/activities")
		{
			activities.POST("", h.CreateActivity)
			activities.GET("", h.ListActivities)
			activities.GET("/:id", h.GetActivity)
			activities.PUT("/:id", h.UpdateActivity)
			activities.DELETE("/:id", h.DeleteActivity)
			activities.DELETE("/:id/purge", middleware.RequireModerator(), h.PurgeActivity)
			activities.POST("/:id/like", h.LikeActivity)
			activities.POST("/:id/flag", h.FlagActivity)
			activities.POST("/:id/reshare", h.ReshareActivity)
			activities.POST("/:id/comments", h.CreateComment)
			activities.POST("/:id/vote", h.Vote)
			activities.POST("/:id/attend", h.Attend)
			activities.POST("/:id/cancel", h.CancelEvent)
		}

		comments := members.Group("/comments")
		{
			comments.PUT("/:id", h.UpdateComment)
			comments.DELETE("/:id", h.DeleteComment)
			comments.POST("/:id/like", h.LikeComment)
			comments.POST("/:id/flag", h.FlagComment)
		}

		users := members.Group("/users")
		{
			users.POST("/:id/follow", h.FollowUser)
			users.DELETE("/:id/follow", h.UnfollowUser)
			users.POST("/:id/block", h.BlockUser)
		}

		tags := members.Group("/tags")
		{
			tags.POST("/:tag/follow", h.FollowTag)
			tags.DELETE("/:tag/follow", h.UnfollowTag)
		}

		messages := members.Group("/messages")
		{
			messages.POST("", h.SendMessage)
			messages.GET("", h.ListMessages)
			messages.POST("/:id/read", h.ReadMessage)
		}
	}

	return r
}
