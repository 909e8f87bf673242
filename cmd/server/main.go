package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-catalog/internal/config"
	"github.com/iliyamo/cinema-catalog/internal/database"
	"github.com/iliyamo/cinema-catalog/internal/handler"
	"github.com/iliyamo/cinema-catalog/internal/logging"
	"github.com/iliyamo/cinema-catalog/internal/metrics"
	"github.com/iliyamo/cinema-catalog/internal/middleware"
	"github.com/iliyamo/cinema-catalog/internal/queue"
	"github.com/iliyamo/cinema-catalog/internal/repository"
	"github.com/iliyamo/cinema-catalog/internal/router"
	"github.com/iliyamo/cinema-catalog/internal/service"
	"github.com/iliyamo/cinema-catalog/internal/telemetry"
)

const serviceName = "cinema-catalog"

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// run wires the service and blocks until a signal or a server failure.
// Every exit goes through the deferred cleanups.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	log := logger.WithField("service", serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.SetupTracer(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("tracing setup: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.WithError(err).Warn("tracing shutdown failed")
			}
		}()
	}

	// Database
	dialect, err := repository.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}
	db, err := database.Open(ctx, cfg.DriverName(), cfg.DSN())
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer db.Close()

	store := repository.NewStore(db, dialect)
	if cfg.DBMigrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("schema migration: %w", err)
		}
	}

	// Services
	m := metrics.NewCatalogMetrics()
	opts := []service.Option{
		service.WithMetrics(m),
		service.WithLogger(log),
	}
	if cfg.EventsEnabled {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitURL, log)))
	}
	movies := service.NewMovieService(store, opts...)
	orders := service.NewOrderService(store, opts...)

	if cfg.EventsConsumerEnabled {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.EventsLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event consumer stopped")
			}
		}()
	}

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))

	catalogMW := router.CatalogMiddleware{}
	if rdb := config.NewRedisClient(cfg.Redis); rdb != nil {
		defer rdb.Close()
		catalogMW.RateLimit = middleware.NewTokenBucket(cfg.RateLimit, rdb, m, log)
		catalogMW.Cache = middleware.NewRedisCache(cfg.Cache, rdb, m)
		catalogMW.Purge = middleware.NewCachePurge(cfg.Cache, rdb)
	} else {
		log.WithField("addr", cfg.Redis.Address()).Warn("redis unavailable; caching and rate limiting disabled")
	}

	router.RegisterRoutes(e, store, prometheus.DefaultGatherer)
	router.RegisterCatalog(e, handler.NewMovieHandler(movies), handler.NewOrderHandler(orders), catalogMW)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
	return serve(ctx, e, addr, cfg.ShutdownTimeout, log)
}

// serve runs e until ctx ends, then shuts it down within timeout.  A server
// that fails to start or dies is returned as an error instead.
func serve(ctx context.Context, e *echo.Echo, addr string, timeout time.Duration, log *logrus.Entry) error {
	errc := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
