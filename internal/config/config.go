package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

type Config struct {
	ListenAddr      string        // ex: "127.0.0.1:7469"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline, event stream excluded

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile   string // optional rotated JSON log file
	LogMaxMB  int    // rotate the log file past this size
	LogKeep   int    // rotated log files kept

	WorkspaceRoot  string        // absolute path of the (first) workspace folder
	WorkspaceName  string        // label written into exports (default: base name of root)
	ExtraFolders   []string      // further roots of a multi-root workspace, "name=/abs/path" or "/abs/path"
	StorageDir     string        // where bookmarks.json/groups.json/relations.json live
	BackupDebounce time.Duration // quiet window before a backup snapshot is taken
	MaxBackups     int           // number of timestamped snapshots retained
	Platform       string        // platform tag written into exports
	Watch          bool          // watch the workspace for deleted files
	WatchGrace     time.Duration // how long a vanished file may take to reappear
	ReloadInterval time.Duration // periodic re-read of the documents, 0 = manual only
	SweepInterval  time.Duration // orphan sweep period

	AllowedCIDRS []string // restrict the bridge to these clients (default loopback)
	AllowedHosts []string // Host headers accepted besides localhost names

	SessionBackend string        // "file" | "redis"
	SessionFile    string        // path of the file backend
	SessionTTL     time.Duration // expiry of redis session keys, 0 = never

	// Redis (session backend only)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honoured but never overrides variables already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] ignoring unreadable .env: %v", err)
	}

	root := getenv("GROUPMARK_WORKSPACE", "")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: cannot resolve working directory: %v", err))
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid GROUPMARK_WORKSPACE %q: %v", root, err))
	}

	storageDir := getenv("GROUPMARK_STORAGE_DIR", filepath.Join(root, ".vscode", "groupbookmarks"))

	cfg := &Config{
		// Bridge settings
		ListenAddr:      getenv("GROUPMARK_LISTEN_ADDR", "127.0.0.1:7469"),
		ShutdownTimeout: mustDuration("GROUPMARK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("GROUPMARK_REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("GROUPMARK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("GROUPMARK_PRETTY_LOG", true),
		LogFile:   getenv("GROUPMARK_LOG_FILE", ""),
		LogMaxMB:  getenvInt("GROUPMARK_LOG_MAX_MB", 10),
		LogKeep:   getenvInt("GROUPMARK_LOG_KEEP", 3),

		// Workspace & storage
		WorkspaceRoot:  root,
		WorkspaceName:  getenv("GROUPMARK_WORKSPACE_NAME", filepath.Base(root)),
		ExtraFolders:   splitAndTrim(getenv("GROUPMARK_EXTRA_FOLDERS", "")),
		StorageDir:     storageDir,
		BackupDebounce: mustDuration("GROUPMARK_BACKUP_DEBOUNCE", time.Second),
		MaxBackups:     getenvInt("GROUPMARK_MAX_BACKUPS", 5),
		Platform:       getenv("GROUPMARK_PLATFORM", "vscode"),
		Watch:          mustBool("GROUPMARK_WATCH", false),
		WatchGrace:     mustDuration("GROUPMARK_WATCH_GRACE", time.Second),
		ReloadInterval: mustDuration("GROUPMARK_RELOAD_INTERVAL", 0),
		SweepInterval:  mustDuration("GROUPMARK_SWEEP_INTERVAL", 10*time.Minute),

		AllowedCIDRS: parseAllowedIPs(getenv("GROUPMARK_ALLOWED_CIDRS", "127.0.0.1/32, ::1/128")),
		AllowedHosts: splitAndTrim(getenv("GROUPMARK_ALLOWED_HOSTS", "")),

		// Session state
		SessionBackend: strings.ToLower(getenv("GROUPMARK_SESSION_BACKEND", SessionBackendFile)),
		SessionFile:    getenv("GROUPMARK_SESSION_FILE", filepath.Join(storageDir, "state", "session.json")),
		SessionTTL:     mustDuration("GROUPMARK_SESSION_TTL", 0),

		// Redis settings
		RedisAddr:           getenv("GROUPMARK_REDIS_ADDR", ""),
		RedisUser:           getenv("GROUPMARK_REDIS_USERNAME", ""),
		RedisPassword:       getenv("GROUPMARK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("GROUPMARK_REDIS_DB", 0),
		RedisDT:             mustDuration("GROUPMARK_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("GROUPMARK_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("GROUPMARK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("GROUPMARK_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("GROUPMARK_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisConnectTimeout: mustDuration("GROUPMARK_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("GROUPMARK_REDIS_RETRY_INTERVAL", 2*time.Second),
	}

	switch cfg.SessionBackend {
	case SessionBackendFile:
	case SessionBackendRedis:
		cfg.RedisAddr = requireEnv("GROUPMARK_REDIS_ADDR")
	default:
		panic(fmt.Sprintf("❌ FATAL: GROUPMARK_SESSION_BACKEND must be %q or %q, got %q",
			SessionBackendFile, SessionBackendRedis, cfg.SessionBackend))
	}

	if cfg.MaxBackups < 1 {
		cfg.MaxBackups = 1
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
