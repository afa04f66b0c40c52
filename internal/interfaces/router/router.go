package router

import (
	"context"
	"net/http"
	"time"

	authsvc "vectorium-backend/internal/application/auth"
	creditsvc "vectorium-backend/internal/application/credits"
	desksvc "vectorium-backend/internal/application/desk"
	emailsvc "vectorium-backend/internal/application/emails"
	healthsvc "vectorium-backend/internal/application/health"
	holdsvc "vectorium-backend/internal/application/holdings"
	notifysvc "vectorium-backend/internal/application/notifications"
	paysvc "vectorium-backend/internal/application/payments"
	txsvc "vectorium-backend/internal/application/transactions"
	uploadsvc "vectorium-backend/internal/application/uploads"
	walletsvc "vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/catalog"
	"vectorium-backend/internal/config"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/infrastructure/database"
	authhandler "vectorium-backend/internal/interfaces/handlers/auth"
	credithandler "vectorium-backend/internal/interfaces/handlers/credits"
	deskhandler "vectorium-backend/internal/interfaces/handlers/desk"
	formhandler "vectorium-backend/internal/interfaces/handlers/forms"
	healthhandler "vectorium-backend/internal/interfaces/handlers/health"
	payhandler "vectorium-backend/internal/interfaces/handlers/payments"
	txhandler "vectorium-backend/internal/interfaces/handlers/transactions"
	wallethandler "vectorium-backend/internal/interfaces/handlers/wallet"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/logging"
	"vectorium-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// bodyLimit leaves room for a 5 MB CV plus the other multipart fields.
const bodyLimit = 6 << 20

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the connections the routes are built on. DB and Redis may be nil;
// routes that need the database are then not mounted.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Auth overrides the Supabase client built from config (tests).
	Auth authsvc.Provider
	// Payments overrides the Stripe client built from config (tests).
	Payments paysvc.IntentCreator
}

// CreateApp opens the database and Redis from cfg and returns the mounted app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	logging.Setup(cfg.Env)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		credits := &creditsvc.Service{DB: db}
		if err := credits.SeedIfEmpty(context.Background(), catalog.SeedItems()); err != nil {
			return nil, nil, nil, err
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set, data routes disabled")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	} else {
		log.Warn().Msg("REDIS_URL not set, health stats and caches disabled")
	}

	return Register(cfg, Deps{DB: db, Redis: rdb}), db, rdb, nil
}

// Register builds the Fiber app and mounts every route on deps.
func Register(cfg *config.Config, deps Deps) *fiber.App {
	db, rdb := deps.DB, deps.Redis

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
		BodyLimit:               bodyLimit,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics())
	app.Use(middleware.HealthMarker(rdb))

	var mailer *emailsvc.BrevoClient
	if cfg.SendinblueAPIKey != "" {
		mailer = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom, SiteURL: cfg.SiteURL}
	}

	provider := deps.Auth
	if provider == nil {
		provider = &authsvc.GoTrueClient{BaseURL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey}
	}
	auth := &authsvc.Service{
		Provider: provider,
		Redis:    rdb,
		CacheTTL: cfg.AuthCacheTTL,
		SiteURL:  cfg.SiteURL,
	}
	if mailer != nil {
		auth.Mailer = mailer
	}
	requireAuth := middleware.RequireAuth(auth)

	var registry *desksvc.Registry
	collector := &healthsvc.Collector{
		Redis:  rdb,
		Probes: probes(cfg),
		Client: &http.Client{Timeout: 3 * time.Second},
		Desks: func() int {
			if registry == nil {
				return 0
			}
			return registry.Len()
		},
	}
	if db != nil {
		collector.DB = &gormDBPinger{db: db}
	}

	hh := &healthhandler.Handlers{Rdb: rdb, Collector: collector, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	ah := &authhandler.Handlers{Service: auth}
	ag := api.Group("/auth")
	ag.Post("/signup", ah.SignUp)
	ag.Post("/signin", ah.SignIn)
	ag.Post("/forgot-password", ah.ForgotPassword)
	ag.Get("/verify", ah.Verify)
	ag.Post("/verify", ah.Verify)
	ag.Delete("/signout", requireAuth, ah.SignOut)
	ag.Get("/me", requireAuth, ah.Me)

	if db == nil {
		return finish(app)
	}

	wallet := &walletsvc.Service{DB: db, StartingBalance: cfg.StartingBalance}
	auth.Profiles = authsvc.ProfileEnsurerFunc(func(ctx context.Context, id uuid.UUID, email, fullName string) error {
		_, err := wallet.EnsureProfile(ctx, id, email, fullName)
		return err
	})
	credits := &creditsvc.Service{DB: db}
	holdings := &holdsvc.Service{DB: db}
	txs := &txsvc.Service{DB: db, Wallet: wallet, Holdings: holdings}

	ch := &credithandler.Handlers{Service: credits, OnCreated: func(item domain.CatalogItem) {
		if registry == nil {
			return
		}
		registry.Each(func(_ string, d *desksvc.Desk) { d.Catalog.AddItem(item) })
	}}
	api.Get("/carbon-credits", ch.List)
	api.Get("/carbon-credits/:id", ch.Get)
	api.Post("/carbon-credits", requireAuth, ch.Create)

	wh := &wallethandler.Handlers{Wallet: wallet, Holdings: holdings}
	api.Get("/wallet", requireAuth, wh.GetWallet)
	api.Post("/wallet", requireAuth, wh.SetWallet)
	api.Get("/user-credits", requireAuth, wh.UserCredits)

	th := &txhandler.Handlers{Service: txs}
	api.Get("/transactions", requireAuth, th.GetTransactions)
	api.Post("/transactions", requireAuth, th.CreateTransaction)

	creator := deps.Payments
	if creator == nil {
		creator = &paysvc.StripeCreator{SecretKey: cfg.StripeSecretKey}
	}
	ph := &payhandler.Handlers{Service: &paysvc.Service{
		DB:            db,
		Wallet:        wallet,
		Creator:       creator,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.StripeCurrency,
	}}
	api.Post("/wallet/top-up", requireAuth, ph.TopUp)
	api.Post("/stripe/webhook", ph.Webhook)

	notify := &notifysvc.Service{DB: db, NotifyTo: cfg.NotifyEmailTo}
	if mailer != nil {
		notify.Mailer = mailer
	}
	if cfg.SupabaseURL != "" && cfg.SupabaseSecretKey != "" {
		notify.Uploads = &uploadsvc.Service{
			Client:      &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			SupabaseURL: cfg.SupabaseURL,
			Bucket:      cfg.SupabaseCVBucket,
		}
	}
	fh := &formhandler.Handlers{Service: notify}
	api.Post("/careers-apply", fh.CareersApply)
	api.Post("/contact-sales", fh.ContactSales)
	api.Post("/support-query", fh.SupportQuery)

	registry = desksvc.NewRegistry(&desksvc.Sources{
		Credits:      credits,
		Wallet:       wallet,
		Holdings:     holdings,
		Transactions: txs,
	}, rdb, cfg.DeskSnapshotTTL)
	registry.IdleTTL = cfg.DeskIdleTTL
	ah.OnSignOut = registry.Evict

	dh := &deskhandler.Handlers{Registry: registry}
	dg := api.Group("/desk", requireAuth)
	dg.Get("/marketplace", dh.Marketplace)
	dg.Patch("/marketplace/filters", dh.SetFilters)
	dg.Delete("/marketplace/filters", dh.ResetFilters)
	dg.Put("/marketplace/selection", dh.Select)
	dg.Post("/marketplace/sync", dh.SyncMarketplace)
	dg.Post("/marketplace/items", dh.AddItem)
	dg.Patch("/marketplace/items/:id", dh.UpdateItem)
	dg.Delete("/marketplace/items/:id", dh.RemoveItem)
	dg.Get("/wallet", dh.Wallet)
	dg.Post("/wallet/buy", dh.Buy)
	dg.Post("/wallet/sell", dh.Sell)
	dg.Post("/wallet/sync", dh.SyncWallet)
	dg.Post("/wallet/purchase", dh.Purchase)
	dg.Post("/wallet/holdings", dh.AddHolding)
	dg.Delete("/wallet/holdings/:id", dh.RemoveHolding)
	dg.Post("/wallet/transactions", dh.AddTransaction)
	dg.Patch("/wallet/transactions/:id", dh.UpdateTransaction)
	dg.Put("/wallet/connection", dh.SetConnection)

	return finish(app)
}

func finish(app *fiber.App) *fiber.App {
	app.Use(func(c *fiber.Ctx) error {
		return response.Error(c, "Route not found", fiber.StatusNotFound, nil)
	})
	return app
}

// probes lists the upstreams shown on the status page.
func probes(cfg *config.Config) map[string]string {
	p := map[string]string{}
	if cfg.SupabaseURL != "" {
		p["supabase"] = cfg.SupabaseURL + "/auth/v1/health"
	}
	if cfg.StripeSecretKey != "" {
		p["stripe"] = "https://api.stripe.com/healthcheck"
	}
	if cfg.SendinblueAPIKey != "" {
		p["brevo"] = "https://api.brevo.com"
	}
	return p
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
