package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alexanderramin/arbor/internal/auth"
	"github.com/alexanderramin/arbor/internal/cli"
	"github.com/alexanderramin/arbor/internal/config"
	"github.com/alexanderramin/arbor/internal/db"
	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/alexanderramin/arbor/internal/persist"
	"github.com/alexanderramin/arbor/internal/remote"
	"github.com/alexanderramin/arbor/internal/repository"
	"github.com/alexanderramin/arbor/internal/service"
	"github.com/alexanderramin/arbor/internal/syncer"
	"github.com/mattn/go-isatty"
)

func main() {
	app := &cli.App{
		Boot: bootstrap,
		// Detect interactive terminal for prompts.
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
	if err := cli.NewRootCmd(app).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, opts cli.GlobalOptions) (*cli.Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Offline {
		cfg.Sync.Offline = true
	}

	logger, logCloser, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{logCloser}
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	// Open database
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	closers = append(closers, database)

	// Wire repositories
	projectRepo := repository.NewSQLiteProjectRepo(database)
	settingsRepo := repository.NewSQLiteSettingsRepo(database)
	queueRepo := repository.NewSQLiteSyncQueueRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	deps := service.Deps{
		Projects: projectRepo,
		Settings: settingsRepo,
		Queue:    queueRepo,
		Mutator:  mutate.New(),
		Logger:   logger,
	}

	var link persist.Link
	if cfg.RemoteEnabled() {
		owner, err := auth.ResolveOwner(cfg.Remote.OwnerID, cfg.Remote.AccessToken, time.Now())
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("resolving remote owner: %w", err)
		}
		adapter, err := openRemote(ctx, cfg, owner, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, closerFunc(adapter.Close))

		engine := syncer.NewEngine(queueRepo, adapter, logger).
			WithOwner(owner).
			WithRetryPolicy(syncer.RetryPolicy{
				Base:        cfg.Sync.RetryBase,
				Max:         cfg.Sync.RetryMax,
				MaxAttempts: cfg.Sync.MaxAttempts,
			}).
			WithInterval(cfg.Sync.DrainInterval).
			WithNotifier(syncer.NotifierFuncs{
				OnConflict: func(entry domain.SyncEntry, err error) {
					fmt.Fprintf(os.Stderr, "%s: %s %s\n", syncer.ConflictMessage, entry.Table, entry.EntityID)
				},
			})
		if !cfg.Sync.Offline {
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			engine.Probe(probeCtx)
			cancel()
		}

		deps.OwnerID = owner
		deps.Engine = engine
		deps.Remote = adapter
		link = engine
	}

	deps.Router = persist.NewRouter(uow, link, persist.Options{
		RemoteEnabled:  cfg.RemoteEnabled(),
		CacheSnapshots: cfg.Sync.CacheSnapshots,
		ForceOffline:   cfg.Sync.Offline,
		OwnerID:        deps.OwnerID,
	}, logger)

	ws := service.NewWorkspace(deps, service.NewLogUseCaseObserver(logger))
	if err := ws.Restore(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("restoring open projects: %w", err)
	}

	return &cli.Session{
		Workspace:   ws,
		MetricsAddr: cfg.Metrics.Addr,
		Close:       closeAll,
	}, nil
}

func openRemote(ctx context.Context, cfg config.Config, owner string, logger *slog.Logger) (remote.Adapter, error) {
	if cfg.Remote.DSN == "memory" {
		return remote.NewMemoryAdapter(), nil
	}
	adapter, err := remote.NewPostgresAdapter(ctx, remote.PostgresOptions{
		DSN:            cfg.Remote.DSN,
		OwnerID:        owner,
		MaxConns:       cfg.Remote.MaxConns,
		ConnectTimeout: 5 * time.Second,
		SlowQuery:      cfg.Remote.SlowQuery,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := adapter.EnsureSchema(ctx); err != nil {
		logger.Warn("remote schema check failed, continuing offline", "error", err)
	}
	return adapter, nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
