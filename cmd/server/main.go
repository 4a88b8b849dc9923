package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medallion-storefront/internal/cart"
	"medallion-storefront/internal/checkout"
	"medallion-storefront/internal/config"
	"medallion-storefront/internal/database"
	"medallion-storefront/internal/handlers"
	"medallion-storefront/internal/logger"
	"medallion-storefront/internal/middleware"
	"medallion-storefront/internal/pricing"
	"medallion-storefront/internal/repositories"
	"medallion-storefront/internal/server"
	"medallion-storefront/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, database.Config{
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

	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database ready")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	var carts cart.Provider
	if cfg.Cart.Backend == "redis" {
		carts = cart.NewRedisProvider(redisClient, sessionStore, cfg.Session.Name, cfg.Cart.TTL, log)
	} else {
		carts = cart.NewSessionProvider(sessionStore, cfg.Session.Name, log)
	}

	var notifier services.Notifier
	var limiter middleware.Limiter
	if redisClient != nil {
		notifier = services.NewRedisNotifier(redisClient, log)
		limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	} else {
		notifier = services.NewMemoryNotifier(log)
		limiter = middleware.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	var email services.EmailService
	if cfg.Resend.APIKey != "" {
		email = services.NewResendEmailService(cfg.Resend, log)
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, order confirmations will not be emailed")
		email = services.NewNoopEmailService(log)
	}

	storage := services.NewStorage(ctx, cfg, services.DefaultUploadDir, log)
	images := services.NewImageService(storage)
	uploader := services.NewBackgroundUploader(images, 30*time.Second, log)

	calc := pricing.NewCalculator(pricing.Rates{
		CatalogShipping:    cfg.Pricing.CatalogShipping,
		FundraiserShipping: cfg.Pricing.FundraiserShipping,
		TaxRate:            cfg.Pricing.TaxRate,
	})

	stripeSessions := checkout.NewStripeSessions(cfg.Stripe.SecretKey)
	composer := checkout.NewComposer(stripeSessions, calc, uploader, checkout.Options{
		Currency:         cfg.Stripe.Currency,
		SuccessURL:       cfg.Stripe.SuccessURL,
		CancelURL:        cfg.Stripe.CancelURL,
		AllowedCountries: cfg.Stripe.AllowedCountries,
	}, log)

	orderRepo := repositories.NewOrderRepository(db.DB)
	fundraiserRepo := repositories.NewFundraiserRepository(db.DB)
	donationRepo := repositories.NewDonationRepository(db.DB)
	settingsRepo := repositories.NewSettingsRepository(db.DB)
	inventoryRepo := repositories.NewInventoryRepository(db.DB)

	settingsService := services.NewSettingsService(settingsRepo, notifier, log)
	fundraiserService := services.NewFundraiserService(fundraiserRepo, donationRepo, settingsService, calc, images, notifier, log)
	orderService := services.NewOrderService(orderRepo, fundraiserRepo, stripeSessions, email, log)
	inventoryService := services.NewInventoryService(inventoryRepo, log)
	analyticsService := services.NewAnalyticsService(orderRepo, donationRepo)

	checks := map[string]handlers.HealthCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}

	router := server.NewRouter(server.Handlers{
		Cart:             handlers.NewCartHandler(carts, calc, log),
		Checkout:         handlers.NewCheckoutHandler(carts, composer, settingsService, log),
		Fundraisers:      handlers.NewFundraiserHandler(fundraiserService, composer, log),
		Webhooks:         handlers.NewWebhookHandler(cfg.Stripe.WebhookSecret, orderService, log),
		Events:           handlers.NewEventsHandler(notifier, log),
		Health:           handlers.NewHealthHandler(checks),
		Admin:            handlers.NewAdminHandler(orderService, log),
		AdminFundraisers: handlers.NewAdminFundraiserHandler(fundraiserService, log),
		Settings:         handlers.NewAdminSettingsHandler(settingsService, log),
		Inventory:        handlers.NewAdminInventoryHandler(inventoryService, log),
		Analytics:        handlers.NewAnalyticsHandler(analyticsService, log),
	}, server.Options{
		AdminKey:       cfg.Admin.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: trustedProxies,
		Limiter:        limiter,
		UploadDir:      services.DefaultUploadDir,
	}, log)

	if cfg.Admin.APIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY not set, admin API is disabled")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, webhooks will be rejected")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdown(srv, uploader, log)
}

// shutdown drains in-flight requests, then waits for image uploads that
// checkouts already promised URLs for.
func shutdown(srv *http.Server, uploader *services.BackgroundUploader, log zerolog.Logger) {
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	done := make(chan struct{})
	go func() {
		uploader.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("gave up waiting for background image uploads")
	}
}
