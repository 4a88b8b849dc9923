package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"medallion-storefront/internal/config"
	"medallion-storefront/internal/database"
	"medallion-storefront/internal/logger"
)

func main() {
	var (
		statusFlag = flag.Bool("status", false, "Show the applied schema version")
		upFlag     = flag.Bool("up", false, "Run pending migrations")
		downFlag   = flag.Int("down", 0, "Roll back this many migrations")
	)
	flag.Parse()

	log := logger.New("info", true)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewConnection(context.Background(), database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open migrations")
	}

	switch {
	case *statusFlag:
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read schema version")
		}
		fmt.Printf("schema version %d (dirty: %v)\n", version, dirty)
	case *upFlag:
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("all migrations applied")
	case *downFlag > 0:
		if err := migrator.Down(*downFlag); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Int("steps", *downFlag).Msg("migrations rolled back")
	default:
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/migrate -status    # Show schema version")
		fmt.Println("  go run ./cmd/migrate -up        # Run pending migrations")
		fmt.Println("  go run ./cmd/migrate -down N    # Roll back N migrations")
		os.Exit(1)
	}
}
