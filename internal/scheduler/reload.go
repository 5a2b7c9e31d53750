package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/service"
	"github.com/MrSnakeDoc/groupmark/internal/store/file"
)

// Reloader re-reads the documents from disk into the index, on demand and
// optionally on an interval. It picks up edits made while the bridge is
// running (a restored backup, a git checkout of the storage directory).
type Reloader struct {
	index         *index.MemoryIndex
	actor         *service.Actor
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}

	mu          sync.RWMutex
	diagnostics []file.Diagnostic
}

// NewReloader creates a reloader. A zero interval disables periodic
// reloads; manualTrigger may be nil.
func NewReloader(
	idx *index.MemoryIndex,
	actor *service.Actor,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Reloader {
	return &Reloader{
		index:         idx,
		actor:         actor,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads immediately, then serves triggers until Stop or ctx is done.
func (r *Reloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := r.Reload(ctx); err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}

	go func() {
		// nil channel: periodic reload disabled
		var tick <-chan time.Time
		if r.interval > 0 {
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-tick:
				if err := r.Reload(ctx); err != nil {
					r.logger.Error("failed to reload documents",
						logger.Error(err))
				}
			case <-r.manualTrigger:
				r.logger.Info("manual reload triggered")
				if err := r.Reload(ctx); err != nil {
					r.logger.Error("failed to reload documents",
						logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (r *Reloader) Stop() {
	close(r.stopCh)
}

// Reload replaces the index content with what is on disk.
func (r *Reloader) Reload(ctx context.Context) error {
	return r.load(ctx, nil)
}

// Restorer copies a backup snapshot over the live documents.
type Restorer interface {
	RestoreBackup(name string) error
}

// Restore copies the named backup over the live documents and loads it.
// No mutation can land between the copy and the load.
func (r *Reloader) Restore(ctx context.Context, b Restorer, name string) error {
	err := r.load(ctx, func() error { return b.RestoreBackup(name) })
	if err != nil {
		return err
	}
	r.logger.Info("backup restored and loaded", logger.String("backup", name))
	return nil
}

func (r *Reloader) load(ctx context.Context, before func() error) error {
	var diags []file.Diagnostic
	err := r.actor.Do(func() error {
		if before != nil {
			if err := before(); err != nil {
				return err
			}
		}
		var err error
		diags, err = r.index.LoadAll(ctx)
		return err
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.diagnostics = diags
	r.mu.Unlock()
	return nil
}

// Diagnostics returns the problems reported by the last load.
func (r *Reloader) Diagnostics() []file.Diagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]file.Diagnostic(nil), r.diagnostics...)
}
