// Package redis dials the optional Redis session backend and waits for it
// to answer before the bridge starts serving.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

const (
	defaultDialTimeout    = 5 * time.Second
	defaultIOTimeout      = 3 * time.Second
	defaultPoolSize       = 4
	defaultConnectTimeout = 30 * time.Second
	defaultRetryInterval  = 2 * time.Second
	defaultMaxWait        = 10 * time.Second
	defaultPingTimeout    = 2 * time.Second
	defaultWarnAttempts   = 3
)

// Options configures Dial. Zero values take the package defaults.
type Options struct {
	Addr     string // host:port, required
	Username string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // budget for the first successful ping
	RetryInterval  time.Duration // first wait between pings, doubled each attempt
	MaxWait        time.Duration // cap on the wait between pings
	PingTimeout    time.Duration
	WarnAttempts   int // failed attempts logged as warnings before switching to errors
}

var errNoAddr = errors.New("redis address is empty")

func (o Options) withDefaults() (Options, error) {
	if o.Addr == "" {
		return o, errNoAddr
	}
	for name, d := range map[string]time.Duration{
		"dial timeout":    o.DialTimeout,
		"read timeout":    o.ReadTimeout,
		"write timeout":   o.WriteTimeout,
		"connect timeout": o.ConnectTimeout,
		"retry interval":  o.RetryInterval,
		"max wait":        o.MaxWait,
		"ping timeout":    o.PingTimeout,
	} {
		if d < 0 {
			return o, fmt.Errorf("redis %s must not be negative, got %v", name, d)
		}
	}
	if o.PoolSize < 0 || o.WarnAttempts < 0 {
		return o, errors.New("redis pool size and warn attempts must not be negative")
	}

	o.DialTimeout = orDefault(o.DialTimeout, defaultDialTimeout)
	o.ReadTimeout = orDefault(o.ReadTimeout, defaultIOTimeout)
	o.WriteTimeout = orDefault(o.WriteTimeout, defaultIOTimeout)
	o.ConnectTimeout = orDefault(o.ConnectTimeout, defaultConnectTimeout)
	o.RetryInterval = orDefault(o.RetryInterval, defaultRetryInterval)
	o.MaxWait = orDefault(o.MaxWait, defaultMaxWait)
	o.PingTimeout = orDefault(o.PingTimeout, defaultPingTimeout)
	if o.MaxWait < o.RetryInterval {
		o.MaxWait = o.RetryInterval
	}
	if o.PoolSize == 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.WarnAttempts == 0 {
		o.WarnAttempts = defaultWarnAttempts
	}
	return o, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// backoff doubles its step up to max.
type backoff struct {
	next time.Duration
	max  time.Duration
}

func (b *backoff) step() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Dial creates a client and pings it until it answers, ConnectTimeout
// elapses or ctx is done. On failure the client is closed.
func Dial(ctx context.Context, opts Options, log logger.Logger) (*redis.Client, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitReady(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping checks the connection, bounded by timeout.
func Ping(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func waitReady(ctx context.Context, client *redis.Client, opts Options, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis",
		logger.String("addr", opts.Addr),
		logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	b := backoff{next: opts.RetryInterval, max: opts.MaxWait}
	for attempt := 1; ; attempt++ {
		err := Ping(ctx, client, opts.PingTimeout)
		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.String("addr", opts.Addr),
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected to redis", logger.String("addr", opts.Addr))
			}
			return nil
		}

		wait := b.step()
		fields := []logger.Field{
			logger.String("addr", opts.Addr),
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnAttempts {
			log.Warn("redis not reachable yet", fields...)
		} else {
			log.Error("redis still unreachable", fields...)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("giving up on redis session backend",
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt))
			return fmt.Errorf("redis at %s unreachable after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
		}
	}
}
