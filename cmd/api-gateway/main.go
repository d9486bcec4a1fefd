package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/concept-review-api/api/swagger"
	"github.com/noah-isme/concept-review-api/internal/handler"
	"github.com/noah-isme/concept-review-api/internal/middleware"
	"github.com/noah-isme/concept-review-api/internal/models"
	"github.com/noah-isme/concept-review-api/internal/repository"
	"github.com/noah-isme/concept-review-api/internal/service"
	"github.com/noah-isme/concept-review-api/pkg/cache"
	"github.com/noah-isme/concept-review-api/pkg/config"
	"github.com/noah-isme/concept-review-api/pkg/database"
	"github.com/noah-isme/concept-review-api/pkg/jobs"
	"github.com/noah-isme/concept-review-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/concept-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/concept-review-api/pkg/middleware/requestid"
)

// @title Concept Review API
// @version 0.1.0
// @description Reviewer rankings, student boards and program chair feedback
// @BasePath /api/v1
// @schemes http

type handlers struct {
	reviews  *handler.ReviewHandler
	boards   *handler.BoardHandler
	feedback *handler.FeedbackHandler
	metrics  *handler.MetricsHandler
}

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheRepo := newBoardCache(ctx, cfg, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Board.CacheTTL, logr, cfg.Board.CacheEnabled)
	tokens := service.NewTokenService(cfg.JWT.Secret)
	validate := validator.New()

	assignmentRepo := repository.NewAssignmentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	notifier := service.NewNotificationService(notificationRepo, metricsSvc, logr, jobs.QueueConfig{
		Workers:      cfg.Notification.Workers,
		BufferSize:   cfg.Notification.BufferSize,
		MaxRetries:   cfg.Notification.MaxRetries,
		RetryDelay:   cfg.Notification.RetryDelay,
		DrainTimeout: cfg.Notification.DrainTimeout,
	})
	// Workers outlive the signal context; Stop flushes them after the server drains.
	notifier.Start(context.Background())

	boardSvc := service.NewBoardService(studentRepo, reviewRepo, assignmentRepo, reviewRepo, cacheSvc, metricsSvc, logr,
		service.BoardServiceConfig{CacheTTL: cfg.Board.CacheTTL})
	reviewSvc := service.NewReviewService(assignmentRepo, reviewRepo, reviewRepo, auditRepo, boardSvc, metricsSvc, validate, logr)
	feedbackSvc := service.NewFeedbackService(assignmentRepo, reviewRepo, feedbackRepo, notifier, auditRepo, validate, logr)

	h := handlers{
		reviews:  handler.NewReviewHandler(reviewSvc),
		boards:   handler.NewBoardHandler(boardSvc),
		feedback: handler.NewFeedbackHandler(feedbackSvc),
		metrics:  handler.NewMetricsHandler(metricsSvc, db),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), tokens, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	notifier.Stop()
}

func registerRoutes(api *gin.RouterGroup, tokens middleware.TokenValidator, h handlers) {
	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	reviewers := secured.Group("")
	reviewers.Use(middleware.RequireRoles(models.ReviewingUserRoles...))
	reviewers.PUT("/assignments/:assignmentId/review", h.reviews.Submit)
	reviewers.PUT("/students/:studentId/ranks", h.reviews.BulkRanks)

	secured.GET("/students/:studentId/board", h.boards.Get)
	secured.GET("/assignments/:assignmentId/messages", h.feedback.ListMessages)
	secured.POST("/assignments/:assignmentId/messages", h.feedback.PostMessage)

	chairs := secured.Group("")
	chairs.Use(middleware.RequireRoles(models.RoleProgramChair, models.RoleAdmin))
	chairs.GET("/students/:studentId/final-pick", h.boards.FinalPick)
	chairs.GET("/students/:studentId/board/export", h.boards.Export)

	programChair := secured.Group("")
	programChair.Use(middleware.RequireRoles(models.RoleProgramChair))
	programChair.POST("/assignments/:assignmentId/chair-feedback", h.feedback.AttachChairFeedback)
}

// newBoardCache picks the configured backend and falls back to memory when redis is unreachable.
func newBoardCache(ctx context.Context, cfg *config.Config, logr *zap.Logger) service.CacheRepository {
	if cfg.Board.CacheBackend == config.CacheBackendRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err == nil {
			return repository.NewCacheRepository(client, logr)
		}
		logr.Sugar().Warnw("redis unavailable, using in-memory board cache", "error", err)
	}
	return repository.NewMemoryCacheRepository(cfg.Board.CacheTTL)
}
