package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voynichlabs/voynich-backend/api/controllers"
	webhookcontrollers "github.com/voynichlabs/voynich-backend/api/controllers/webhooks"
	"github.com/voynichlabs/voynich-backend/api/middleware"
	"github.com/voynichlabs/voynich-backend/internal/activity"
	"github.com/voynichlabs/voynich-backend/internal/analysis"
	"github.com/voynichlabs/voynich-backend/internal/credits"
	"github.com/voynichlabs/voynich-backend/internal/leaderboard"
	"github.com/voynichlabs/voynich-backend/internal/votes"
	stripewebhook "github.com/voynichlabs/voynich-backend/internal/webhooks/stripe"
	"github.com/voynichlabs/voynich-backend/pkg/config"
	"github.com/voynichlabs/voynich-backend/pkg/db"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
	"github.com/voynichlabs/voynich-backend/pkg/redis"
	"github.com/voynichlabs/voynich-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 db.Pinger
	Redis              *redis.Client
	CreditsService     credits.Service
	VotesService       votes.Service
	LeaderboardService leaderboard.Service
	ActivityService    activity.Service
	AnalysisService    analysis.Service
	StripeClient       *stripe.Client
	StripeWebhook      *stripewebhook.Service
	StripeGuard        *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeClient, p.StripeGuard, logg))
	})

	// Public surfaces: the community feed, the leaderboard, and shared
	// analysis results need no credentials.
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Get("/activity-feed", controllers.PublicActivityFeed(p.ActivityService, logg))
		r.Get("/leaderboard", controllers.GetLeaderboard(p.LeaderboardService, logg))
		r.Get("/analysis/shared/{token}", controllers.GetSharedAnalysis(p.AnalysisService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/credits", func(r chi.Router) {
			r.Get("/balance", controllers.GetCreditBalance(p.CreditsService, logg))
			r.Get("/history", controllers.GetCreditHistory(p.CreditsService, logg))
		})

		r.Route("/analysis", func(r chi.Router) {
			r.With(middleware.AnalysisRateLimit(cfg.RateLimit, p.Redis, logg)).
				Post("/", controllers.RequestAnalysis(p.AnalysisService, logg))
			r.Get("/", controllers.ListAnalyses(p.AnalysisService, logg))
			r.Get("/usage", controllers.GetUsage(p.AnalysisService, logg))
			r.Get("/{id}", controllers.GetAnalysis(p.AnalysisService, logg))
		})

		r.Post("/annotations/{id}/vote", controllers.CastAnnotationVote(p.VotesService, logg))
		r.Post("/blog/{id}/vote", controllers.CastBlogPostVote(p.VotesService, logg))

		r.Get("/activity-feed", controllers.MyActivityFeed(p.ActivityService, logg))
	})

	return r
}
