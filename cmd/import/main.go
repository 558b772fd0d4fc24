// Command import loads team and history CSV exports into the configured
// store, or pushes them to a running server with -url.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/calcutta/internal/adapters/repository"
	"github.com/okian/calcutta/internal/adapters/repository/postgres"
	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/config"
	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/internal/ingest"
	"github.com/okian/calcutta/pkg/logger"
)

const defaultRunTimeout = 5 * time.Minute

type options struct {
	teams   string
	history string
	url     string
	warm    bool
	timeout time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.teams, "teams", "", "Team CSV export (name, seed, region, stats, odds_*)")
	flag.StringVar(&o.history, "history", "", "History CSV (name,seed,price,year)")
	flag.StringVar(&o.url, "url", "", "Push to a running server instead of the configured store")
	flag.BoolVar(&o.warm, "warm", false, "Rebuild the rank cache after importing")
	flag.DurationVar(&o.timeout, "timeout", defaultRunTimeout, "Overall timeout")
	flag.Parse()

	if err := run(o); err != nil {
		os.Stderr.WriteString("import: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(o options) error {
	if o.teams == "" && o.history == "" {
		flag.Usage()
		return fmt.Errorf("nothing to import: pass -teams and/or -history")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Named("import")

	var src ingest.Source
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if o.teams != "" {
		f, err := os.Open(o.teams)
		if err != nil {
			return err
		}
		closers = append(closers, f)
		src.Teams = f
	}
	if o.history != "" {
		f, err := os.Open(o.history)
		if err != nil {
			return err
		}
		closers = append(closers, f)
		src.History = f
	}
	src.Warm = o.warm

	target, shutdown, err := openTarget(ctx, cfg, o.url, log)
	if err != nil {
		return err
	}
	defer shutdown()

	rep, err := ingest.NewImporter(target, ingest.WithLogger(log)).Run(ctx, src)
	if err != nil {
		return err
	}
	log.Info(ctx, "import finished",
		logger.Int("teams", rep.Teams),
		logger.Int("historyAdded", rep.HistoryAdded),
		logger.Int("historyDuplicates", rep.HistoryDuplicates),
		logger.Duration("elapsed", rep.Elapsed),
	)
	return nil
}

// openTarget returns an HTTP target for url, or a service over the
// configured store. The in-process service never starts its rebuild worker;
// -warm rebuilds synchronously.
func openTarget(ctx context.Context, cfg *config.Config, url string, log logger.Logger) (ingest.Target, func(), error) {
	if url != "" {
		return ingest.NewHTTPTarget(url, ingest.DefaultTimeout), func() {}, nil
	}

	var store repository.Store
	switch cfg.Store {
	case config.StorePostgres:
		client, err := postgres.New(ctx, postgres.ClientConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.PostgresMaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Migrate {
			if err := client.RunMigrations(ctx); err != nil {
				client.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		store = postgres.NewStore(client)
	default:
		log.Warn(ctx, "memory store selected; imported data lives only for this run")
		store = repository.NewMemoryStore()
	}

	opts := []service.Option{
		service.WithStore(store),
		service.WithLogger(log),
		service.WithReferenceYears(cfg.ReferenceYears...),
	}
	if cfg.SeasonFile != "" {
		season, err := bracket.LoadSeason(cfg.SeasonFile)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("load season: %w", err)
		}
		opts = append(opts, service.WithSeason(season))
	}
	svc, err := service.New(opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return ingest.ServiceTarget{Service: svc}, func() { _ = store.Close() }, nil
}
