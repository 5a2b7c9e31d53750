package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/groupmark/internal/exchange"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/scheduler"
	"github.com/MrSnakeDoc/groupmark/internal/service"
)

// Backups is the slice of the file store the backup endpoints need.
type Backups interface {
	scheduler.Restorer
	Backup() (string, error)
	Backups() ([]string, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	AllowedHosts   []string            // Host headers accepted besides loopback names
	AllowedCIDRS   []string            // client IPs allowed to reach the bridge
	RequestTimeout time.Duration       // per-request deadline for non-streaming routes
	Heartbeat      time.Duration       // SSE keep-alive interval
	Services       *service.Services   // bookmark/group/relation operations
	MemoryIndex    *index.MemoryIndex  // live collections and change subscriptions
	Exchange       *exchange.Service   // export/import
	Backups        Backups             // nil disables the backup endpoints
	Reloader       *scheduler.Reloader // synchronous reloads, restores and load diagnostics
	Sweeper        *scheduler.Sweeper  // orphan sweep (optional)
	RedisClient    *redis.Client       // set only with the redis session backend
	ReloadTrigger  chan struct{}       // manual reload of the documents from disk
	Shutdown       <-chan struct{}     // closed when the server begins shutting down
}
