package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spotixhq/spotix-backend/api/routes"
	"github.com/spotixhq/spotix-backend/internal/agents"
	"github.com/spotixhq/spotix-backend/internal/auth"
	"github.com/spotixhq/spotix-backend/internal/authcodes"
	"github.com/spotixhq/spotix-backend/internal/enhance"
	"github.com/spotixhq/spotix-backend/internal/events"
	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/internal/ledger"
	"github.com/spotixhq/spotix-backend/internal/payouts"
	"github.com/spotixhq/spotix-backend/internal/tickets"
	"github.com/spotixhq/spotix-backend/internal/users"
	"github.com/spotixhq/spotix-backend/internal/verification"
	"github.com/spotixhq/spotix-backend/internal/wallet"
	"github.com/spotixhq/spotix-backend/pkg/auth/session"
	"github.com/spotixhq/spotix-backend/pkg/config"
	"github.com/spotixhq/spotix-backend/pkg/db"
	"github.com/spotixhq/spotix-backend/pkg/logger"
	"github.com/spotixhq/spotix-backend/pkg/metrics"
	"github.com/spotixhq/spotix-backend/pkg/migrate"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/redis"
	"github.com/spotixhq/spotix-backend/pkg/storage"
	"github.com/spotixhq/spotix-backend/pkg/storage/gcs"
	"github.com/spotixhq/spotix-backend/pkg/storage/local"
	"github.com/spotixhq/spotix-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	fatalOn(logg, "failed to load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	fatalOn(logg, "failed to bootstrap database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	fatalOn(logg, "failed to run dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	fatalOn(logg, "failed to bootstrap redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	fatalOn(logg, "failed to create session manager", err)

	promRegistry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(promRegistry)
	metricsHandler := promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})

	var stripeClient *stripe.Client
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		fatalOn(logg, "failed to bootstrap stripe", err)
	} else {
		logg.Warn(context.Background(), "stripe not configured, card top-ups disabled")
	}

	uploader, err := buildUploader(context.Background(), cfg, logg)
	fatalOn(logg, "failed to build document uploader", err)

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	eventsRepo := events.NewRepository(gormDB)
	ticketsRepo := tickets.NewRepository(gormDB)
	outboxEmitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	identityService, err := identity.NewService(usersRepo)
	fatalOn(logg, "failed to create identity service", err)

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	fatalOn(logg, "failed to create ledger service", err)

	var walletService wallet.Service
	if stripeClient != nil {
		walletService, err = wallet.NewService(dbClient, wallet.NewRepository(gormDB), ledgerService, outboxEmitter, stripeClient, logg)
	} else {
		walletService, err = wallet.NewService(dbClient, wallet.NewRepository(gormDB), ledgerService, outboxEmitter, nil, logg)
	}
	fatalOn(logg, "failed to create wallet service", err)

	eventsService, err := events.NewService(dbClient, eventsRepo)
	fatalOn(logg, "failed to create events service", err)

	ticketsService, err := tickets.NewService(dbClient, ticketsRepo, identityService, eventsRepo, eventsService, walletService, ledgerService, outboxEmitter, settlementMetrics)
	fatalOn(logg, "failed to create ticket service", err)

	verificationService, err := verification.NewService(dbClient, verification.NewRepository(gormDB), uploader, outboxEmitter)
	fatalOn(logg, "failed to create verification service", err)

	payoutsService, err := payouts.NewService(dbClient, payouts.NewRepository(gormDB), eventsRepo, eventsService, identityService, ledgerService, outboxEmitter, settlementMetrics)
	fatalOn(logg, "failed to create payout service", err)

	agentsService, err := agents.NewService(dbClient, agents.NewRepository(gormDB), ledgerService, outboxEmitter, settlementMetrics)
	fatalOn(logg, "failed to create agent service", err)

	authCodesService, err := authcodes.NewService(dbClient, authcodes.NewRepository(gormDB), usersRepo, ticketsRepo, outboxEmitter)
	fatalOn(logg, "failed to create auth code service", err)

	enhanceService, err := enhance.NewService(cfg.OpenAI, logg)
	fatalOn(logg, "failed to create enhancement service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	fatalOn(logg, "failed to create auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	fatalOn(logg, "failed to create register service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			identityService,
			authService,
			registerService,
			walletService,
			eventsService,
			ticketsService,
			verificationService,
			payoutsService,
			agentsService,
			authCodesService,
			enhanceService,
			stripeClient,
			metricsHandler,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildUploader tiers GCS ahead of local disk; a missing bucket leaves local
// disk as the only provider.
func buildUploader(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*storage.Uploader, error) {
	var providers []storage.Provider

	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap gcs: %w", err)
		}
		providers = append(providers, gcsClient)
	}

	localProvider, err := local.New(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap local storage: %w", err)
	}
	providers = append(providers, localProvider)

	return storage.NewUploader(providers, cfg.Storage.UploadAttempts, cfg.Storage.UploadBackoff, logg)
}

func fatalOn(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
