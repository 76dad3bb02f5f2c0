package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voynichlabs/voynich-backend/api/routes"
	"github.com/voynichlabs/voynich-backend/internal/activity"
	"github.com/voynichlabs/voynich-backend/internal/analysis"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	"github.com/voynichlabs/voynich-backend/internal/leaderboard"
	"github.com/voynichlabs/voynich-backend/internal/manuscript"
	"github.com/voynichlabs/voynich-backend/internal/references"
	"github.com/voynichlabs/voynich-backend/internal/votes"
	stripewebhook "github.com/voynichlabs/voynich-backend/internal/webhooks/stripe"
	"github.com/voynichlabs/voynich-backend/pkg/config"
	"github.com/voynichlabs/voynich-backend/pkg/db"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
	"github.com/voynichlabs/voynich-backend/pkg/metrics"
	"github.com/voynichlabs/voynich-backend/pkg/migrate"
	"github.com/voynichlabs/voynich-backend/pkg/openai"
	"github.com/voynichlabs/voynich-backend/pkg/redis"
	"github.com/voynichlabs/voynich-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	openaiClient, err := openai.New(cfg.OpenAI)
	if err != nil {
		logg.Error(context.Background(), "failed to create openai client", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	creditsService, err := credits.NewService(credits.ServiceParams{
		Repo:        credits.NewRepository(dbClient.DB()),
		TxRunner:    dbClient,
		Metrics:     engineMetrics,
		SignupGrant: cfg.Credits.SignupGrant,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}

	leaderboardService, err := leaderboard.NewService(leaderboard.ServiceParams{
		Repo:     leaderboard.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Metrics:  engineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create leaderboard service", err)
		os.Exit(1)
	}

	activityService, err := activity.NewService(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	votesService, err := votes.NewService(votes.ServiceParams{
		Repo:        votes.NewRepository(dbClient.DB()),
		TxRunner:    dbClient,
		Leaderboard: leaderboardService,
		Activity:    activityService,
		Logger:      logg,
		Metrics:     engineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create votes service", err)
		os.Exit(1)
	}

	resolver, err := references.NewResolver(manuscript.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create reference resolver", err)
		os.Exit(1)
	}

	analysisService, err := analysis.NewService(analysis.ServiceParams{
		Repo:          analysis.NewRepository(dbClient.DB()),
		Resolver:      resolver,
		Ledger:        creditsService,
		Invoker:       openaiClient,
		Activity:      activityService,
		Logger:        logg,
		Metrics:       engineMetrics,
		InvokeTimeout: cfg.OpenAI.InvokeTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analysis service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Ledger:   creditsService,
		Activity: activityService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	stripeGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Credits.IdempotencyTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			DB:                 dbClient,
			Redis:              redisClient,
			CreditsService:     creditsService,
			VotesService:       votesService,
			LeaderboardService: leaderboardService,
			ActivityService:    activityService,
			AnalysisService:    analysisService,
			StripeClient:       stripeClient,
			StripeWebhook:      stripeWebhookService,
			StripeGuard:        stripeGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
