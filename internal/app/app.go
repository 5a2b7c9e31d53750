package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/config"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/scheduler"
	"github.com/MrSnakeDoc/groupmark/internal/utils"
	"github.com/MrSnakeDoc/groupmark/internal/version"
	"github.com/MrSnakeDoc/groupmark/internal/watcher"
	"github.com/MrSnakeDoc/groupmark/internal/workspace"
)

// App runs the bridge: the data core, its background jobs and the HTTP
// server.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	core    *Core
	server  *httpserver.Server
	backups *scheduler.BackupScheduler
	sweeper *scheduler.Sweeper
	watcher *watcher.Watcher // nil unless GROUPMARK_WATCH is set
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerClient := NewLogger(cfg)

	sess, redisClient, err := OpenSession(ctx, cfg, loggerClient.Named("session"))
	if err != nil {
		return nil, err
	}
	core, err := Open(cfg, loggerClient, sess, redisClient)
	if err != nil {
		if redisClient != nil {
			utils.MustClose(redisClient, loggerClient, "redis client")
		}
		return nil, fmt.Errorf("open storage %s: %w", cfg.StorageDir, err)
	}

	// Every successful document write arms the backup debounce.
	backups := scheduler.NewBackupScheduler(core.Store, loggerClient.Named("backup"), cfg.BackupDebounce)
	core.Store.OnWrite(backups.Trigger)

	sweeper := scheduler.NewSweeper(core.Index, core.Services.Actor, sess, loggerClient.Named("sweeper"), cfg.SweepInterval)

	var w *watcher.Watcher
	if cfg.Watch {
		w, err = newWatcher(cfg, core, loggerClient.Named("watcher"))
		if err != nil {
			utils.MustClose(core, loggerClient, "storage")
			return nil, err
		}
	}

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:         loggerClient.Named("http"),
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		RequestTimeout: cfg.RequestTimeout,
		Services:       core.Services,
		MemoryIndex:    core.Index,
		Exchange:       core.Exchange,
		Backups:        core.Store,
		Reloader:       core.Reloader,
		Sweeper:        sweeper,
		RedisClient:    redisClient,
		ReloadTrigger:  core.ReloadTrigger,
	}

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		core:    core,
		server:  httpserver.New(cfg.ListenAddr, loggerClient, d),
		backups: backups,
		sweeper: sweeper,
		watcher: w,
	}, nil
}

// newWatcher builds the workspace watcher over the primary root and any
// extra folders.
func newWatcher(cfg *config.Config, core *Core, log logger.Logger) (*watcher.Watcher, error) {
	folders := []workspace.Folder{{Name: cfg.WorkspaceName, Root: cfg.WorkspaceRoot}}
	for _, spec := range cfg.ExtraFolders {
		folders = append(folders, workspace.ParseFolder(spec))
	}
	ws, err := workspace.New(folders...)
	if err != nil {
		return nil, fmt.Errorf("workspace folders: %w", err)
	}
	w, err := watcher.New(ws, core.Services.Bookmarks, log, cfg.WatchGrace)
	if err != nil {
		return nil, err
	}
	core.Index.SubscribeBookmarks(w.Refresh)
	return w, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting groupmark v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Info(version.String())
	a.logger.Info("workspace",
		logger.String("root", a.cfg.WorkspaceRoot),
		logger.String("storage", a.cfg.StorageDir),
		logger.String("session", a.cfg.SessionBackend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the documents and serve reload triggers.
	if err := a.core.Reloader.Start(ctx); err != nil {
		utils.MustClose(a.core, a.logger, "storage")
		return fmt.Errorf("failed to start reloader: %w", err)
	}
	a.logger.Info("documents loaded",
		logger.Duration("reload_interval", a.cfg.ReloadInterval))

	a.backups.Start(ctx)

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	a.logger.Info("sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval))

	if a.watcher != nil {
		a.watcher.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		a.logger.Error("bridge failed, shutting down", logger.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop watcher", logger.Error(err))
		}
	}
	a.sweeper.Stop()
	a.core.Reloader.Stop()
	// Flushes a pending debounced backup.
	a.backups.Stop()

	if err := a.core.Close(); err != nil {
		a.logger.Warn("failed to release storage lock", logger.Error(err))
	}

	a.logger.Info("✅ groupmark stopped cleanly")
	_ = a.logger.Sync()
	return runErr
}
