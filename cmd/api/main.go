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

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/qa-review/internal/adapter/handler"
	"github.com/johnquangdev/qa-review/internal/adapter/repository"
	"github.com/johnquangdev/qa-review/internal/infrastructure/cache"
	"github.com/johnquangdev/qa-review/internal/infrastructure/database"
	httpmw "github.com/johnquangdev/qa-review/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/qa-review/internal/infrastructure/storage"
	"github.com/johnquangdev/qa-review/internal/usecase/audit"
	criteriaUsecase "github.com/johnquangdev/qa-review/internal/usecase/criteria"
	"github.com/johnquangdev/qa-review/internal/usecase/importer"
	"github.com/johnquangdev/qa-review/internal/usecase/recording"
	"github.com/johnquangdev/qa-review/internal/usecase/scoring"
	"github.com/johnquangdev/qa-review/internal/usecase/transcription"
	"github.com/johnquangdev/qa-review/pkg/config"
	"github.com/johnquangdev/qa-review/pkg/jwt"
	"github.com/johnquangdev/qa-review/pkg/metrics"
	pkgvalidator "github.com/johnquangdev/qa-review/pkg/validator"
)

// @title           QA Review API
// @version         1.0
// @description     Call quality review: evaluation templates, scoring and transcript editing

// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	logger.Info("connecting to database", zap.String("host", cfg.Database.Host))
	db, err := database.NewPostgresDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB(db) }()

	// Production deployments manage schema with cmd/migrate
	if cfg.Database.AutoMigrate {
		if cfg.IsProduction() {
			return errors.New("DB_AUTO_MIGRATE is enabled in production; run cmd/migrate instead")
		}
		if err := database.AutoMigrate(db, cfg.Database.MigrationsDir, logger); err != nil {
			return err
		}
	}

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return ping(ctx, db) },
	}

	store, closeStore, err := newCacheStore(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	minioClient, err := storage.NewMinIOClient(&cfg.Storage)
	if err != nil {
		return err
	}
	if err := minioClient.EnsureBucket(ctx, 30*time.Second); err != nil {
		logger.Warn("object storage is not ready; audio links may fail", zap.Error(err))
	}
	checks["storage"] = minioClient.Ping

	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)

	recorder := audit.NewRecorder(repository.NewAuditLogRepository(db), logger, m, cfg.Audit.BufferSize)
	defer recorder.Close()

	criteriaSvc := criteriaUsecase.NewService(repos, uow, store, cfg.Cache.TTL, recorder, m, logger)
	scoringSvc := scoring.NewService(repos, uow, recorder, m, logger)
	transcriptionSvc := transcription.NewService(repos, uow, recorder, m, logger)
	recordingSvc := recording.NewService(repos.Recordings, minioClient, cfg.Storage.URLExpiry, logger)

	var importSvc importer.Service
	if cfg.Assembly.APIKey != "" {
		client := aai.NewClient(cfg.Assembly.APIKey)
		importSvc = importer.NewService(client.Transcripts, repos, uow, recorder, m, logger, importer.Options{
			RetryInitialInterval: cfg.Assembly.RetryInitialInterval,
			RetryMaxElapsedTime:  cfg.Assembly.RetryMaxElapsedTime,
		})
	} else {
		logger.Warn("ASSEMBLYAI_API_KEY is not set; transcript import is disabled")
	}

	tokens := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry, cfg.JWT.Issuer)

	e := echo.New()
	e.HideBanner = true
	e.Validator = pkgvalidator.New()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(httpmw.RequestMetrics(m))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	deps := handler.RouterDeps{
		Config:        cfg,
		Tokens:        tokens,
		Metrics:       m,
		HealthChecks:  checks,
		Criteria:      handler.NewCriteriaHandler(criteriaSvc, scoringSvc, logger),
		Transcription: handler.NewTranscriptionHandler(transcriptionSvc, logger),
		Recording:     handler.NewRecordingHandler(recordingSvc, transcriptionSvc, importSvc, scoringSvc, logger),
	}
	if importSvc != nil {
		deps.Webhook = handler.NewWebhookHandler(importSvc, cfg.Assembly.WebhookSecret, logger)
	}
	handler.NewRouter(deps).Setup(e)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// newCacheStore picks redis when configured and falls back to memory
func newCacheStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]handler.HealthCheck) (cache.Store, func(), error) {
	if cfg.Redis.Host == "" {
		logger.Info("REDIS_HOST is not set; using in-memory criteria cache")
		return cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.CleanupInterval), func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, nil, err
	}
	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	store := cache.NewRedisStore(client, cfg.Redis.Prefix)
	return store, func() { _ = store.Close() }, nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
