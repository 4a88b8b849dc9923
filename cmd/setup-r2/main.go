package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"medallion-storefront/internal/config"
	"medallion-storefront/internal/logger"
	"medallion-storefront/internal/services"
)

func main() {
	log := logger.New("info", true)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := services.ValidateR2Config(cfg.R2); err != nil {
		log.Fatal().Err(err).Msg("R2 configuration is invalid")
	}

	fmt.Println("Storage information:")
	fmt.Printf("  Bucket:     %s\n", cfg.R2.BucketName)
	fmt.Printf("  Public URL: %s\n", cfg.R2.PublicURL)
	fmt.Printf("  Origins:    %v\n", cfg.Server.AllowedOrigins)

	if len(os.Args) < 2 || os.Args[1] != "setup" {
		fmt.Println("\nTo configure the bucket, run: go run ./cmd/setup-r2 setup")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := services.SetupR2Bucket(ctx, cfg.R2, cfg.Server.AllowedOrigins, log); err != nil {
		log.Fatal().Err(err).Msg("failed to set up R2 bucket")
	}
	log.Info().Str("bucket", cfg.R2.BucketName).Msg("R2 bucket ready")
}
