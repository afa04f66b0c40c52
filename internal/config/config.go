package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	SupabaseURL         string // e.g. https://<project>.supabase.co, used for auth, storage and public URLs
	SupabaseAnonKey     string // GoTrue calls on behalf of end users
	SupabaseSecretKey   string // must be service_role key (Dashboard → API), not anon key
	SupabaseCVBucket    string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for welcome/notification emails (Brevo)
	MailFrom            string // MAIL_FROM sender email (default noreply@vectorium.earth)
	NotifyEmailTo       string // team inbox for careers, sales and support forms
	SiteURL             string // web app origin for email links and auth redirects
	AuthCacheTTL        time.Duration
	DeskSnapshotTTL     time.Duration
	DeskIdleTTL         time.Duration // in-memory desks untouched this long are dropped
	StartingBalance     decimal.Decimal
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("SUPABASE_CV_BUCKET", "cvs")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("MAIL_FROM", "noreply@vectorium.earth")
	v.SetDefault("SITE_URL", "https://vectorium.earth")
	v.SetDefault("AUTH_CACHE_TTL", "5m")
	v.SetDefault("DESK_SNAPSHOT_TTL", "720h")
	v.SetDefault("DESK_IDLE_TTL", "2h")
	v.SetDefault("WALLET_STARTING_BALANCE", "10000")

	env := v.GetString("NODE_ENV")
	if env == "" {
		env = v.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = v.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = v.GetString("DATABASE_URL_TEST")
	}

	starting, err := decimal.NewFromString(v.GetString("WALLET_STARTING_BALANCE"))
	if err != nil || starting.IsNegative() {
		starting = decimal.NewFromInt(10000)
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		SupabaseURL:         strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseAnonKey:     v.GetString("SUPABASE_ANON_KEY"),
		SupabaseSecretKey:   v.GetString("SUPABASE_SECRET_KEY"),
		SupabaseCVBucket:    v.GetString("SUPABASE_CV_BUCKET"),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      strings.ToLower(v.GetString("STRIPE_CURRENCY")),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:    v.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            v.GetString("MAIL_FROM"),
		NotifyEmailTo:       v.GetString("NOTIFY_EMAIL_TO"),
		SiteURL:             strings.TrimRight(v.GetString("SITE_URL"), "/"),
		AuthCacheTTL:        v.GetDuration("AUTH_CACHE_TTL"),
		DeskSnapshotTTL:     v.GetDuration("DESK_SNAPSHOT_TTL"),
		DeskIdleTTL:         v.GetDuration("DESK_IDLE_TTL"),
		StartingBalance:     starting,
	}, nil
}

// IsProduction reports whether APP_ENV/NODE_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
