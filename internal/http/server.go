package http

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rankforge/leaderboard/internal/cache"
	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/config"
	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/http/middleware"
	"github.com/rankforge/leaderboard/internal/identity"
	"github.com/rankforge/leaderboard/internal/kafka"
	"github.com/rankforge/leaderboard/internal/leaderboard"
	"github.com/rankforge/leaderboard/internal/metrics"
	"github.com/rankforge/leaderboard/internal/quota"
	"github.com/rankforge/leaderboard/internal/repository"
	"github.com/rankforge/leaderboard/internal/scoring"

	"github.com/jmoiron/sqlx"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rdb *redis.Client, producer *kafka.Producer, log *zap.Logger) *Server {
	clk := clock.SystemClock{}

	tenantsRepo := repository.NewTenantsRepository(mysqlDB)
	projectsRepo := repository.NewProjectsRepository(mysqlDB)
	apiKeysRepo := repository.NewApiKeysRepository(mysqlDB)
	subscriptionsRepo := repository.NewSubscriptionsRepository(mysqlDB)
	leaderboardsRepo := repository.NewLeaderboardsRepository(mysqlDB)
	seasonsRepo := repository.NewSeasonsRepository(mysqlDB)
	usageRepo := repository.NewUsageRepository(mysqlDB)
	chScoreEventsRepo := repository.NewCHScoreEventsRepository(clickhouseDB)

	identitySvc := identity.New(tenantsRepo, projectsRepo, apiKeysRepo, subscriptionsRepo, clk)

	pub := events.NewPublisher(producer, log)
	leaderboardSvc := leaderboard.New(leaderboardsRepo, seasonsRepo, pub, clk)
	scoringEngine := scoring.New(rdb, pub, clk)
	quotaSvc := quota.New(usageRepo, leaderboardsRepo, apiKeysRepo, projectsRepo, clk)

	authCache := cache.NewAuthCache(rdb, cfg.AuthCacheTTLSecs)
	rateLimiter := cache.NewRateLimiter(rdb, clk, cfg.RLKeyTTLSecs)
	usageTracker := cache.NewUsageTracker(rdb, clk, cfg.UsageRetentionDays)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.RequestID())
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	metrics.MustRegister(prometheus.DefaultRegisterer)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	authMW := middleware.APIKeyMiddleware(identitySvc, authCache)
	rlMW := middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit, log)

	scores := e.Group("/scores", authMW, rlMW)
	scores.POST("", updateScoreHandler(scoringEngine), middleware.UsageTrackingMiddleware(usageTracker, quotaSvc, middleware.UsageScoreUpdate))
	scores.POST("/batch-update", batchUpdateScoreHandler(scoringEngine), middleware.UsageTrackingMiddleware(usageTracker, quotaSvc, middleware.UsageScoreUpdate))

	lbs := e.Group("/leaderboards", authMW, rlMW)
	lbs.POST("", createLeaderboardHandler(leaderboardSvc, quotaSvc))
	lbs.GET("", listLeaderboardsHandler(leaderboardSvc))
	lbs.GET("/:id", getLeaderboardHandler(leaderboardSvc))
	lbs.PUT("/:id", updateLeaderboardHandler(leaderboardSvc))
	lbs.DELETE("/:id", deleteLeaderboardHandler(leaderboardSvc))
	lbs.GET("/:id/top", topHandler(scoringEngine), middleware.UsageTrackingMiddleware(usageTracker, quotaSvc, middleware.UsageLeaderboardRead))
	lbs.GET("/:id/rank/:userId", rankHandler(scoringEngine), middleware.UsageTrackingMiddleware(usageTracker, quotaSvc, middleware.UsageLeaderboardRead))
	lbs.POST("/:id/seasons", createSeasonHandler(leaderboardSvc))
	lbs.GET("/:id/seasons", listSeasonsHandler(leaderboardSvc))
	lbs.PATCH("/:id/seasons/:seasonId", setSeasonActiveHandler(leaderboardSvc))
	lbs.DELETE("/:id/seasons/:seasonId", deleteSeasonHandler(leaderboardSvc))
	lbs.GET("/:id/history", historyHandler(chScoreEventsRepo))

	internalMW := middleware.InternalSecretMiddleware(cfg.InternalAPISecret)
	internalAPI := e.Group("/internal", internalMW)
	internalAPI.POST("/tenants", createTenantHandler(identitySvc))
	internalAPI.POST("/projects", createProjectHandler(identitySvc))
	internalAPI.POST("/api-keys", createApiKeyHandler(identitySvc))
	internalAPI.GET("/projects/:projectId/api-keys", listApiKeysHandler(identitySvc))
	internalAPI.DELETE("/projects/:projectId/api-keys/:keyId", revokeApiKeyHandler(identitySvc))
	internalAPI.POST("/projects/:projectId/api-keys/:keyId/rotate", rotateApiKeyHandler(identitySvc))
	internalAPI.POST("/validate", validateApiKeyHandler(identitySvc))
	internalAPI.POST("/subscriptions", createSubscriptionHandler(subscriptionsRepo))
	internalAPI.GET("/subscriptions/tenant/:id", subscriptionsByTenantHandler(subscriptionsRepo))
	internalAPI.PATCH("/subscriptions/:id/cancel", cancelSubscriptionHandler(subscriptionsRepo))
	internalAPI.GET("/subscriptions/:id/usage-check", subscriptionUsageCheckHandler(subscriptionsRepo, quotaSvc))
	internalAPI.POST("/usage/record", recordUsageHandler(quotaSvc))
	internalAPI.GET("/usage/tenant/:id", usageByTenantHandler(quotaSvc))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
