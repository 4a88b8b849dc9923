package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/config"
)

// DefaultUploadDir is where LocalStorage keeps objects; cmd/server serves it
// under /uploads.
const DefaultUploadDir = "uploads"

// NewStorage builds the object storage for cfg: R2 with a local fallback in
// uploadDir when R2 is configured and reachable, local disk otherwise.
func NewStorage(ctx context.Context, cfg *config.Config, uploadDir string, log zerolog.Logger) StorageService {
	local := NewLocalStorage(uploadDir, cfg.Server.BaseURL+"/uploads", log)

	if err := ValidateR2Config(cfg.R2); err != nil {
		log.Info().Msg("R2 not configured, storing uploads locally")
		return local
	}

	r2, err := NewR2Service(ctx, cfg.R2, log)
	if err != nil {
		log.Warn().Err(err).Msg("R2 unavailable, storing uploads locally")
		return local
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r2.HealthCheck(checkCtx); err != nil {
		log.Warn().Err(err).Msg("R2 health check failed, storing uploads locally")
		return local
	}

	log.Info().Str("bucket", cfg.R2.BucketName).Msg("R2 storage initialized")
	return NewFallbackStorage(r2, local, log)
}

// ValidateR2Config reports the first missing R2 setting.
func ValidateR2Config(cfg config.R2Config) error {
	switch {
	case cfg.AccountID == "" && cfg.Endpoint == "":
		return fmt.Errorf("R2_ACCOUNT_ID is required")
	case cfg.AccessKeyID == "":
		return fmt.Errorf("R2_ACCESS_KEY_ID is required")
	case cfg.SecretAccessKey == "":
		return fmt.Errorf("R2_SECRET_ACCESS_KEY is required")
	case cfg.BucketName == "":
		return fmt.Errorf("R2_BUCKET_NAME is required")
	}
	return nil
}

// SetupR2Bucket creates the bucket and applies CORS for the given origins.
func SetupR2Bucket(ctx context.Context, cfg config.R2Config, origins []string, log zerolog.Logger) error {
	if err := ValidateR2Config(cfg); err != nil {
		return err
	}

	r2, err := NewR2Service(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create R2 service: %w", err)
	}
	if err := r2.CreateBucket(ctx); err != nil {
		return fmt.Errorf("failed to create R2 bucket: %w", err)
	}
	if err := r2.SetBucketCORS(ctx, origins); err != nil {
		return fmt.Errorf("failed to set R2 bucket CORS: %w", err)
	}

	log.Info().Str("bucket", cfg.BucketName).Msg("R2 bucket configured")
	return nil
}
