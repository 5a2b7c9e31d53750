package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// DefaultBackupDebounce is the quiet window before a backup is taken.
const DefaultBackupDebounce = time.Second

// Backuper takes one snapshot of the persisted documents.
type Backuper interface {
	Backup() (string, error)
}

// BackupScheduler coalesces bursts of writes into a single backup taken
// once no write has happened for the debounce window.
type BackupScheduler struct {
	backuper Backuper
	logger   logger.Logger
	debounce time.Duration
	trigger  chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewBackupScheduler creates a scheduler. Call Start before Trigger has any
// effect.
func NewBackupScheduler(b Backuper, log logger.Logger, debounce time.Duration) *BackupScheduler {
	if debounce <= 0 {
		debounce = DefaultBackupDebounce
	}
	return &BackupScheduler{
		backuper: b,
		logger:   log,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Trigger (re)arms the debounce timer. It never blocks.
func (bs *BackupScheduler) Trigger() {
	select {
	case bs.trigger <- struct{}{}:
	default:
	}
}

// Start runs the debounce loop until Stop is called or ctx is done.
func (bs *BackupScheduler) Start(ctx context.Context) {
	if !bs.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(bs.done)

		// Reset and Stop discard stale ticks since Go 1.23, no draining needed.
		timer := time.NewTimer(bs.debounce)
		timer.Stop()
		pending := false

		for {
			select {
			case <-bs.trigger:
				timer.Reset(bs.debounce)
				pending = true
			case <-timer.C:
				pending = false
				bs.run()
			case <-bs.stopCh:
				timer.Stop()
				if pending {
					bs.run()
				}
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
}

// Stop flushes a pending backup and stops the loop.
func (bs *BackupScheduler) Stop() {
	bs.stopOnce.Do(func() {
		close(bs.stopCh)
	})
	if bs.started.Load() {
		<-bs.done
	}
}

func (bs *BackupScheduler) run() {
	name, err := bs.backuper.Backup()
	if err != nil {
		bs.logger.Error("scheduled backup failed", logger.Error(err))
		return
	}
	bs.logger.Debug("scheduled backup completed", logger.String("backup", name))
}
