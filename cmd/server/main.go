package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/complaint-hub/complaint-hub/internal/api/http"
	"github.com/complaint-hub/complaint-hub/internal/application/dispatch"
	"github.com/complaint-hub/complaint-hub/internal/application/history"
	"github.com/complaint-hub/complaint-hub/internal/application/lifecycle"
	"github.com/complaint-hub/complaint-hub/internal/config"
	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/filestore"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/memory"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/metrics"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/postgres"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/redis"
	"github.com/complaint-hub/complaint-hub/internal/infrastructure/sse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := zerolog.New(os.Stdout).Level(cfg.LogLevel).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	var (
		complaints complaint.Repository
		failures   notification.FailureRepository
		checks     []func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		complaints = memory.NewComplaintRepository()
		failures = memory.NewFailureRepository()
		logger.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.DatabaseMaxConn})
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		complaints = postgres.NewComplaintRepository(pool)
		failures = postgres.NewFailureRepository(pool)
		checks = append(checks, pool.Ping)
	}

	// infrastructure
	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)
	store, err := filestore.New(cfg.AttachmentRoot, cfg.ChecksumAlgorithm, cfg.AttachmentMaxBytes, logger)
	if err != nil {
		log.Fatalf("attachment store error: %v", err)
	}
	sseHub := sse.NewHub(logger)
	routes := []dispatch.Route{{Sink: sseHub, Condition: cfg.NotifySSERule}}

	redisClient, err := redis.New(ctx, redis.Options{URL: cfg.RedisURL})
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks = append(checks, redisClient.Health)
		routes = append(routes, dispatch.Route{
			Sink:      redis.NewPublisher(redisClient, cfg.RedisChannel),
			Condition: cfg.NotifyRedisRule,
		})
	}

	// services
	dispatcher, err := dispatch.New(routes, failures, dispatch.Options{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
	}, m, logger)
	if err != nil {
		log.Fatalf("notification routing error: %v", err)
	}
	if cfg.HistorySigningKey == nil {
		logger.Warn().Msg("HISTORY_SIGNING_KEY not set, history entries are unsigned")
	}
	orchestrator := lifecycle.NewOrchestrator(
		complaints,
		store,
		history.NewRecorder(cfg.HistorySigningKey, logger),
		dispatcher,
		m,
		logger,
	)

	// API server
	apiServer := httpapi.NewServer(orchestrator, failures, sseHub, prometheus.DefaultGatherer, httpapi.Options{
		MaxUploadBytes: cfg.AttachmentMaxBytes,
		Ready:          func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	dispatcher.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", cfg.StoreDriver).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		sseHub.Stop()
		err := httpServer.Shutdown(ctxShutdown)
		dispatcher.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}
