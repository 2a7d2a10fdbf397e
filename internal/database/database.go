package database

import (
	"fmt"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Drivers understood by Open
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures a connection
type Options struct {
	Driver string
	DSN    string
	Debug  bool
	// Tracing adds a span per query under the caller's span
	Tracing bool
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Community{},
		&models.Membership{},
		&models.Activity{},
		&models.PollAnswer{},
		&models.PollVote{},
		&models.EventAttendee{},
		&models.Comment{},
		&models.Like{},
		&models.Flag{},
		&models.Follow{},
		&models.TagFollow{},
		&models.Block{},
		&models.Message{},
		&models.Notification{},
		&models.PushSubscription{},
		&models.NotificationPreferences{},
	}
}

// Open creates and configures a database connection without touching DB
func Open(opts Options) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if opts.Debug {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormLogger,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if opts.Tracing {
		system := "postgresql"
		if opts.Driver == DriverSQLite {
			system = "sqlite"
		}
		if err := db.Use(telemetry.GORMTracingPlugin(system)); err != nil {
			return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.Driver == DriverSQLite {
		// a single connection keeps in-memory databases shared and avoids
		// SQLITE_BUSY under concurrent writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// Initialize opens the global connection
func Initialize(opts Options) error {
	db, err := Open(opts)
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected", zap.String("driver", opts.Driver))
	return nil
}

// Migrate runs auto-migration for all models on the global connection
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB runs auto-migration and index creation on db
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes creates indexes gorm tags cannot express
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",

		// Inbox listing: unread first then newest
		"CREATE INDEX IF NOT EXISTS idx_notifications_inbox ON notifications (recipient_id, community_id, is_read, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_activities_community_created ON activities (community_id, created_at DESC) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_comments_activity_created ON comments (activity_id, created_at) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_memberships_community_role ON memberships (community_id, role) WHERE active",
		"CREATE INDEX IF NOT EXISTS idx_tag_follows_community_tag ON tag_follows (community_id, tag)",
		"CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages (recipient_id) WHERE read_at IS NULL",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
