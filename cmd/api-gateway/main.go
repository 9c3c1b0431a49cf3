package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/trust-enforcement-api/api/swagger"
	"github.com/noah-isme/trust-enforcement-api/internal/handler"
	"github.com/noah-isme/trust-enforcement-api/internal/middleware"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/internal/repository"
	"github.com/noah-isme/trust-enforcement-api/internal/service"
	"github.com/noah-isme/trust-enforcement-api/pkg/cache"
	"github.com/noah-isme/trust-enforcement-api/pkg/config"
	"github.com/noah-isme/trust-enforcement-api/pkg/database"
	"github.com/noah-isme/trust-enforcement-api/pkg/jobs"
	"github.com/noah-isme/trust-enforcement-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/trust-enforcement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/trust-enforcement-api/pkg/middleware/requestid"
)

// @title Trust Enforcement API
// @version 1.0.0
// @description Report intake, moderation queue and sanction enforcement.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache and scoring signals", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, db, redisClient, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))
	r.Use(middleware.WithResponseMeta())
	registerRoutes(r, cfg, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if app.queue != nil {
		app.queue.Start(groupCtx)
	}
	app.sweeper.Start(groupCtx)

	group.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		app.sweeper.Stop()
		if app.queue != nil {
			app.queue.Stop()
		}
		return err
	})

	if err := group.Wait(); err != nil {
		logr.Sugar().Errorw("server stopped with error", "error", err)
		return
	}
	logr.Sugar().Infow("server stopped")
}

type application struct {
	metrics    *service.MetricsService
	queue      *jobs.Queue
	sweeper    *service.SanctionSweeper
	tokens     *service.TokenService
	reports    *handler.ReportHandler
	moderation *handler.ModerationHandler
	sanctions  *handler.SanctionHandler
	stats      *handler.StatsHandler
	logs       *handler.ModerationLogHandler
	probes     *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	metrics := service.NewMetricsService()
	mod := cfg.Moderation

	reportRepo := repository.NewReportRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	sanctionRepo := repository.NewSanctionRepository(db)
	logRepo := repository.NewModerationLogRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	signalRepo := repository.NewSignalRepository(redisClient, mod.SignalKeyPrefix, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	store := repository.NewModerationStore(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, mod.StatsCacheTTL, logr, redisClient != nil)
	statsSvc := service.NewStatsService(statsRepo, cacheSvc, mod.StatsCacheTTL, logr)

	var queue *jobs.Queue
	var notifications *service.NotificationService
	if cfg.Notifications.Enabled {
		var notifier service.Notifier = service.NewLogNotifier(logr)
		if cfg.Notifications.WebhookURL != "" {
			notifier = service.NewWebhookNotifier(cfg.Notifications.WebhookURL, cfg.Notifications.WebhookTimeout, cfg.Notifications.WebhookRetries, logr)
		}
		notifications = service.NewNotificationService(nil, notifier, metrics, logr)
		queue = jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
			DeadLetter: notifications.DeadLetter,
		})
		notifications.AttachQueue(queue)
	}

	severe := lo.Map(mod.SevereReasons, func(code string, _ int) models.ReasonCode { return models.ReasonCode(code) })
	reportSvc := service.NewReportService(service.ReportServiceParams{
		Reports:    reportRepo,
		Store:      store,
		Resolver:   service.NewTargetResolver(targetRepo),
		Signals:    signalRepo,
		Scorer:     service.NewPriorityScorer(severe, mod.GeoWeightThreshold),
		Dispatcher: service.NewActionDispatcher(mod.SuspensionDuration, logr),
		Notifier:   notifications,
		Stats:      statsSvc,
		Metrics:    metrics,
		Validator:  validator.New(),
		Logger:     logr,
		Config:     service.ReportServiceConfig{MaxPageSize: mod.MaxPageSize},
	})
	sanctionSvc := service.NewSanctionService(store, sanctionRepo, statsSvc, logr)
	sweeper := service.NewSanctionSweeper(store, statsSvc, metrics, service.SweeperConfig{
		Interval:     mod.SweepInterval,
		BatchSize:    mod.SweepBatchSize,
		BatchTimeout: mod.SweepBatchTimeout,
	}, logr)
	logSvc := service.NewModerationLogService(logRepo, nil, nil, mod.MaxPageSize, logr)

	return &application{
		metrics: metrics,
		queue:   queue,
		sweeper: sweeper,
		tokens: service.NewTokenService(service.TokenConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		}),
		reports:    handler.NewReportHandler(reportSvc),
		moderation: handler.NewModerationHandler(reportSvc),
		sanctions:  handler.NewSanctionHandler(sanctionSvc),
		stats:      handler.NewStatsHandler(statsSvc),
		logs:       handler.NewModerationLogHandler(logSvc),
		probes:     handler.NewMetricsHandler(metrics, db, cacheRepo),
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, app *application) {
	r.GET("/health", app.probes.Health)
	r.GET("/ready", app.probes.Ready)
	r.GET("/metrics", app.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(app.tokens))
	api.POST("/reports", app.reports.Submit)

	moderation := api.Group("/moderation")
	moderation.Use(middleware.RequireModerator())
	moderation.GET("/reports", app.moderation.List)
	moderation.GET("/reports/:id", app.moderation.Get)
	moderation.POST("/reports/:id/claim", app.moderation.Claim)
	moderation.POST("/reports/:id/resolve", app.moderation.Resolve)
	moderation.POST("/suspensions/:id/lift", app.sanctions.LiftSuspension)
	moderation.POST("/users/:id/lift-suspensions", app.sanctions.LiftUserSuspensions)
	moderation.GET("/users/:id/sanctions", app.sanctions.History)
	moderation.GET("/stats", app.stats.Get)
	moderation.GET("/logs", app.logs.List)
	moderation.GET("/logs/export", middleware.RequireRoles(models.RoleAdmin), app.logs.Export)
}
