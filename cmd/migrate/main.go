package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Butonix/localhub/internal/config"
	"github.com/Butonix/localhub/internal/database"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Parse command
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "models":
		listModels()
	default:
		fmt.Println("Usage: migrate [up|models]")
		fmt.Println("  up     - Create or update every table and index")
		fmt.Println("  models - List the migrated models")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("Connecting to database...", zap.String("driver", cfg.DBDriver))

	// Initialize database connection
	if err := database.Initialize(database.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Debug: cfg.DBDebug}); err != nil {
		logger.FatalWithFields("Failed to connect to database", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Migration failed", err)
	}

	logger.Log.Info("All migrations completed successfully")
}

func listModels() {
	for _, m := range database.AllModels() {
		fmt.Printf("%T\n", m)
	}
}
