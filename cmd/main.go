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

	"golang.org/x/sync/errgroup"

	"github.com/okian/calcutta/internal/adapters/cache/redis"
	"github.com/okian/calcutta/internal/adapters/http/api"
	"github.com/okian/calcutta/internal/adapters/http/swagger"
	"github.com/okian/calcutta/internal/adapters/repository"
	"github.com/okian/calcutta/internal/adapters/repository/postgres"
	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/config"
	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

// HTTP server timeout constants not covered by config.
const (
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("calcutta: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	svc, cleanup, err := buildService(ctx, cfg, log, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	metrics.RegisterRuntimeCollectors()

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.Error(err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// buildService wires the store, lock and season into a service. The
// returned cleanup releases the lock client; the service owns the store once
// started.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger, store repository.Store) (*service.Service, func(), error) {
	cleanup := func() {}
	opts := []service.Option{
		service.WithStore(store),
		service.WithLogger(log.Named("service")),
		service.WithReferenceYears(cfg.ReferenceYears...),
		service.WithQueueSize(cfg.QueueSize),
		service.WithLockTTL(cfg.LockTTL),
		service.WithLockWait(cfg.LockWait),
	}

	if cfg.SeasonFile != "" {
		season, err := bracket.LoadSeason(cfg.SeasonFile)
		if err != nil {
			return nil, cleanup, fmt.Errorf("load season: %w", err)
		}
		opts = append(opts, service.WithSeason(season))
	}

	if cfg.RedisAddr != "" {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect redis: %w", err)
		}
		cleanup = func() { _ = rc.Close() }
		opts = append(opts, service.WithLocker(redis.NewLockManager(rc)))
		log.Info(ctx, "using redis auction lock", logger.String("addr", cfg.RedisAddr))
	}

	svc, err := service.New(opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("new service: %w", err)
	}
	return svc, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		client, err := postgres.New(ctx, postgres.ClientConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.PostgresMaxConns})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Migrate {
			if err := client.RunMigrations(ctx); err != nil {
				client.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		log.Info(ctx, "using postgres store")
		return postgres.NewStore(client), nil
	default:
		return repository.NewMemoryStore(repository.WithLogger(log.Named("store"))), nil
	}
}

// startServiceMetricsUpdater refreshes gauges derived from service stats
// until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if total, ok := stats["totalTeams"].(int); ok {
		metrics.UpdateTeams(total)
	}
}
