package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/groupmark/internal/config"
	"github.com/MrSnakeDoc/groupmark/internal/exchange"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/redis"
	"github.com/MrSnakeDoc/groupmark/internal/scheduler"
	"github.com/MrSnakeDoc/groupmark/internal/service"
	"github.com/MrSnakeDoc/groupmark/internal/store/file"
	redisstore "github.com/MrSnakeDoc/groupmark/internal/store/redis"
	"github.com/MrSnakeDoc/groupmark/internal/store/session"
)

const (
	redisPoolSize      = 4 // one editor, a handful of concurrent requests
	redisWarnThreshold = 3
)

// Core is the storage-backed data core shared by the bridge and the
// one-shot commands. It owns the storage directory lock until Close.
type Core struct {
	Config   *config.Config
	Logger   logger.Logger
	Store    *file.Store
	Index    *index.MemoryIndex
	Session  session.Store
	Services *service.Services
	Exchange *exchange.Service
	Reloader *scheduler.Reloader

	// ReloadTrigger asks the running reloader for a re-read from disk.
	ReloadTrigger chan struct{}

	redisClient *goredis.Client
}

// NewLogger builds the process logger from the configuration.
func NewLogger(cfg *config.Config) logger.Logger {
	var opts []logger.Option
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile), logger.WithRotation(cfg.LogMaxMB, cfg.LogKeep))
	}
	return logger.New(cfg.LogLevel, cfg.PrettyLog, opts...)
}

// OpenSession builds the configured session backend. The redis client is
// nil with the file backend.
func OpenSession(ctx context.Context, cfg *config.Config, log logger.Logger) (session.Store, *goredis.Client, error) {
	if cfg.SessionBackend != config.SessionBackendRedis {
		return session.NewFileStore(afero.NewOsFs(), cfg.SessionFile), nil, nil
	}

	log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	client, err := redis.Dial(ctx, redis.Options{
		Addr:           cfg.RedisAddr,
		Username:       cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       redisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnAttempts:   redisWarnThreshold,
	}, log.Named("redis"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("Redis initialized successfully")
	return redisstore.NewSessionStore(client, cfg.WorkspaceRoot, cfg.SessionTTL), client, nil
}

// Open locks the storage directory and wires the index, services,
// exchange and reloader around it. Nothing is loaded yet.
func Open(cfg *config.Config, log logger.Logger, sess session.Store, redisClient *goredis.Client) (*Core, error) {
	st, err := file.New(afero.NewOsFs(), file.Options{Dir: cfg.StorageDir, MaxBackups: cfg.MaxBackups}, log.Named("store"))
	if err != nil {
		return nil, err
	}
	if err := st.Lock(); err != nil {
		return nil, err
	}

	idx := index.NewMemoryIndex(st, log.Named("index"))
	svc := service.New(idx, sess, log)
	ex := exchange.New(idx, svc.Actor, st, exchange.Options{
		Platform:  cfg.Platform,
		Workspace: cfg.WorkspaceName,
	}, log.Named("exchange"))

	trigger := make(chan struct{}, 1)
	return &Core{
		Config:        cfg,
		Logger:        log,
		Store:         st,
		Index:         idx,
		Session:       sess,
		Services:      svc,
		Exchange:      ex,
		Reloader:      scheduler.NewReloader(idx, svc.Actor, log.Named("reloader"), cfg.ReloadInterval, trigger),
		ReloadTrigger: trigger,
		redisClient:   redisClient,
	}, nil
}

// Load reads the documents into the index once. Problems found in the
// documents are logged by the index and kept as diagnostics.
func (c *Core) Load(ctx context.Context) error {
	return c.Reloader.Reload(ctx)
}

// Close releases the storage lock and the redis client.
func (c *Core) Close() error {
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Warnf("failed to close redis: %v", err)
		} else {
			c.Logger.Info("✅ Redis closed cleanly")
		}
	}
	return c.Store.Unlock()
}
