package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/citypair-slots/internal/config"
	"github.com/iliyamo/citypair-slots/internal/database"
	"github.com/iliyamo/citypair-slots/internal/handler"
	"github.com/iliyamo/citypair-slots/internal/logger"
	"github.com/iliyamo/citypair-slots/internal/middleware"
	"github.com/iliyamo/citypair-slots/internal/queue"
	"github.com/iliyamo/citypair-slots/internal/repository"
	"github.com/iliyamo/citypair-slots/internal/router"
	"github.com/iliyamo/citypair-slots/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		return err
	}
	log.Info("database ready", zap.String("driver", cfg.DB.Driver))

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, cache and rate limiting disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events service.EventPublisher
	if cfg.Broker.URL != "" {
		pub := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue, log)
		defer func() { _ = pub.Close() }()
		events = pub

		consumer := queue.NewConsumer(cfg.Broker.URL, cfg.Broker.Queue, nil, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	limits := service.Limits{
		MaxSlotsPerAirline:      cfg.Limits.MaxSlotsPerAirline,
		MinSlotGapMinutes:       cfg.Limits.MinSlotGapMinutes,
		MaxSlotsPerHourAtOrigin: cfg.Limits.MaxSlotsPerHourAtOrigin,
	}
	svc := service.NewSlotService(
		repository.NewSQLTxManager(db, database.TxOptions(cfg.DB.Driver)),
		repository.NewRepositories(db),
		service.NewValidator(limits),
		events,
		log.Named("slots"),
	)

	var invalidate handler.Invalidator
	if rdb != nil && cfg.Cache.Enabled {
		invalidate = func(ctx context.Context) error {
			return middleware.InvalidateCache(ctx, rdb, cfg.Cache.Prefix)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(log.Named("http")))

	router.RegisterRoutes(e)
	router.RegisterSlots(e, handler.NewSlotHandler(svc, invalidate, log), router.Middleware{
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
