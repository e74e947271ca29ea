package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/taskboard/internal/blobstore"
	"github.com/and161185/taskboard/internal/config"
	"github.com/and161185/taskboard/internal/crypto"
	"github.com/and161185/taskboard/internal/limiter"
	"github.com/and161185/taskboard/internal/migrate"
	"github.com/and161185/taskboard/internal/repository/postgres"
	httpserver "github.com/and161185/taskboard/internal/server/http"
	"github.com/and161185/taskboard/internal/service"
	"github.com/and161185/taskboard/internal/token"
)

const (
	uploadsRoute    = "/uploads"
	shutdownTimeout = 5 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and serve the REST API",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	cmd.Flags().String("limiter", "", "login limiter backend: postgres, redis or none")
	cmd.Flags().Bool("dev", false, "development logging")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("limiter", cfg.Limiter.Backend),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DB.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	lim, closeLim, err := newLimiter(cfg, db)
	if err != nil {
		return err
	}
	defer closeLim()

	e, err := buildAPI(cfg, db, lim, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- e.Start(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(sctx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = e.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// newLimiter picks the login limiter backend. The returned func releases its resources.
func newLimiter(cfg *config.Config, db *postgres.DB) (limiter.Limiter, func(), error) {
	switch cfg.Limiter.Backend {
	case config.LimiterRedis:
		opts, err := redis.ParseURL(cfg.Limiter.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		return limiter.NewRedis(rdb, cfg.Policy()), func() { _ = rdb.Close() }, nil
	case config.LimiterNone:
		return limiter.Nop{}, func() {}, nil
	default:
		return limiter.NewPG(db.Pool, cfg.Policy()), func() {}, nil
	}
}

// buildAPI wires repositories and services into the echo router.
func buildAPI(cfg *config.Config, db *postgres.DB, lim limiter.Limiter, logger *zap.Logger) (*echo.Echo, error) {
	blobs, err := blobstore.NewLocal(cfg.Storage.UploadDir, uploadsRoute)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	users := postgres.NewUserRepo(db)
	boards := postgres.NewBoardRepo(db)
	tasks := postgres.NewTaskRepo(db)
	atts := postgres.NewAttachmentRepo(db)
	tags := postgres.NewTagRepo(db)

	origin := cfg.HTTP.PublicOrigin
	tokens := token.NewJWT([]byte(cfg.Auth.JWTKey), cfg.Auth.AccessTTL)
	guard := service.NewGuard(users, tokens, boards, tasks)
	agg := service.NewAggregator(atts, tags, origin)
	cleaner := service.NewCleaner(blobs, logger)

	authSvc := service.NewAuthService(users, crypto.Hasher{}, tokens, lim, blobs, cleaner, origin)
	boardSvc := service.NewBoardService(boards, guard, cleaner)
	taskSvc := service.NewTaskService(tasks, boardSvc, guard, agg, cleaner)
	attSvc := service.NewAttachmentService(atts, blobs, guard, agg, cleaner)
	tagSvc := service.NewTagService(tags, guard)

	srv := httpserver.New(guard, authSvc, boardSvc, taskSvc, attSvc, tagSvc, logger, httpserver.Options{
		UploadDir:      blobs.Dir(),
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
	})
	return srv.Echo(), nil
}
