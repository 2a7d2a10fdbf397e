package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Butonix/localhub/internal/config"
	"github.com/Butonix/localhub/internal/database"
	"github.com/Butonix/localhub/internal/kernel"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/seed"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	domain        string
	userCount     int
	activityCount int
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the localhub database",
	Long: `Seed creates demo communities, users and content. Everything goes
through the same services as the API, so every seeded action produces its
notifications.`,
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Seed development database with realistic data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
			return s.SeedDev(ctx, domain, userCount, activityCount)
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Seed test database with minimal data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
			return s.SeedTest(ctx, domain)
		})
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all data (use with caution)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
			return s.Clean(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&domain, "domain", "localhost", "Community domain to seed")
	devCmd.Flags().IntVar(&userCount, "users", 20, "Number of users to create")
	devCmd.Flags().IntVar(&activityCount, "activities", 50, "Number of activities to create")

	rootCmd.AddCommand(devCmd, testCmd, cleanCmd)
}

// withSeeder connects, migrates and wires the services, then runs fn.
// Deliveries queued by the seeded actions are drained before returning.
func withSeeder(ctx context.Context, fn func(context.Context, *seed.Seeder) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logger.Close()

	if err := database.Initialize(database.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Debug: cfg.DBDebug}); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	k, err := kernel.Build(ctx, cfg, database.DB, kernel.Overrides{})
	if err != nil {
		return err
	}
	defer func() {
		if err := k.Cleanup(context.Background()); err != nil {
			logger.Log.Warn("Cleanup finished with errors", zap.Error(err))
		}
	}()

	if err := fn(ctx, seed.NewSeeder(database.DB, k.Service())); err != nil {
		return err
	}
	logger.Log.Info("Seeding finished", zap.String("domain", domain))
	return nil
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
