package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Cart      CartConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Resend    ResendConfig
	R2        R2Config
	Pricing   PricingConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Env            string
	BaseURL        string
	AllowedOrigins []string
	// TrustedProxies are the CIDRs or IPs whose X-Forwarded-For is believed.
	TrustedProxies []string
}

type DatabaseConfig struct {
	URL      string // Full database URL
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SessionConfig struct {
	Secret string
	Name   string
	MaxAge int
	Secure bool
}

// CartConfig selects where the cart is persisted between requests.
type CartConfig struct {
	Backend string // "cookie" or "redis"
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	Currency         string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	Region          string
	Endpoint        string
}

// PricingConfig holds the storefront's money constants. The defaults are the
// live storefront values: $8.00 catalog shipping, $5.00 fundraiser
// ship-to-me and a 5% cart tax estimate.
type PricingConfig struct {
	CatalogShipping    decimal.Decimal
	FundraiserShipping decimal.Decimal
	TaxRate            decimal.Decimal
}

type AdminConfig struct {
	APIKey string
}

// RateLimitConfig is a token bucket per client IP on the public API.
// Buckets live in Redis when it is configured so limits hold across
// instances.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

var (
	DefaultCatalogShipping    = decimal.RequireFromString("8.00")
	DefaultFundraiserShipping = decimal.RequireFromString("5.00")
	DefaultTaxRate            = decimal.RequireFromString("0.05")
)

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	port := getEnv("PORT", "8080")
	host := getEnv("HOST", "localhost")
	baseURL := getEnv("BASE_URL", "http://"+host+":"+port)

	config := &Config{
		Server: ServerConfig{
			Port:    port,
			Host:    host,
			Env:     getEnv("ENV", "development"),
			BaseURL: strings.TrimSuffix(baseURL, "/"),

			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{strings.TrimSuffix(baseURL, "/")}),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
		},
		Database: parseDatabaseConfig(),
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "change-me-in-production"),
			Name:   getEnv("SESSION_NAME", "medallion_session"),
			MaxAge: getEnvAsInt("SESSION_MAX_AGE", 86400*30),
			Secure: getEnvAsBool("SESSION_SECURE", false),
		},
		Cart: CartConfig{
			Backend: strings.ToLower(getEnv("CART_BACKEND", "cookie")),
			TTL:     getEnvAsDuration("CART_TTL", 30*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:    getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:         strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
			SuccessURL:       getEnv("STRIPE_SUCCESS_URL", baseURL+"/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:        getEnv("STRIPE_CANCEL_URL", baseURL+"/cart"),
			AllowedCountries: upperAll(getEnvAsList("STRIPE_SHIPPING_COUNTRIES", []string{"US"})),
		},
		Resend: ResendConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("RESEND_FROM_EMAIL", "orders@medallions.example"),
			FromName:  getEnv("RESEND_FROM_NAME", "Medallion Shop"),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", "medallion-images"),
			PublicURL:       getEnv("R2_PUBLIC_URL", ""),
			Region:          getEnv("R2_REGION", "auto"),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
		},
		Pricing: PricingConfig{
			CatalogShipping:    getEnvAsDecimal("CATALOG_SHIPPING_COST", DefaultCatalogShipping),
			FundraiserShipping: getEnvAsDecimal("FUNDRAISER_SHIPPING_COST", DefaultFundraiserShipping),
			TaxRate:            getEnvAsDecimal("CART_TAX_RATE", DefaultTaxRate),
		},
		Admin: AdminConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 30),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configuration that would produce nonsensical prices.
func (c *Config) Validate() error {
	if c.Pricing.CatalogShipping.IsNegative() || c.Pricing.FundraiserShipping.IsNegative() {
		return errors.New("shipping costs cannot be negative")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("tax rate must be between 0 and 1")
	}
	if c.Cart.Backend != "cookie" && c.Cart.Backend != "redis" {
		return errors.New("cart backend must be cookie or redis")
	}
	if c.Cart.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis cart backend requires REDIS_ADDR")
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func parseDatabaseConfig() DatabaseConfig {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL != "" {
		return parseDatabaseURL(databaseURL)
	}

	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "medallions"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func parseDatabaseURL(databaseURL string) DatabaseConfig {
	config := DatabaseConfig{
		URL: databaseURL,
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return config
	}

	config.Host = u.Hostname()
	if u.Port() != "" {
		config.Port, _ = strconv.Atoi(u.Port())
	} else {
		config.Port = 5432
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	config.DBName = strings.TrimPrefix(u.Path, "/")

	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
