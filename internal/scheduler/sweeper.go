package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/service"
	"github.com/MrSnakeDoc/groupmark/internal/store/session"
)

const (
	// DefaultSweepInterval is how often referential integrity is checked
	DefaultSweepInterval = 10 * time.Minute
)

// SweepReport counts what one sweep removed.
type SweepReport struct {
	DanglingRelations int  `json:"danglingRelations"`
	OrphanBookmarks   int  `json:"orphanBookmarks"`
	ClearedActive     bool `json:"clearedActive"`
}

// Empty reports whether the sweep found nothing to fix.
func (r SweepReport) Empty() bool {
	return r.DanglingRelations == 0 && r.OrphanBookmarks == 0 && !r.ClearedActive
}

// Sweeper repairs data that the services never produce themselves but that
// hand-edited or partially restored documents can contain: relations into
// missing bookmarks or groups, bookmarks without relations, and an active
// group pointer to a deleted group.
type Sweeper struct {
	index    *index.MemoryIndex
	actor    *service.Actor
	session  session.Store
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(
	idx *index.MemoryIndex,
	actor *service.Actor,
	sess session.Store,
	log logger.Logger,
	interval time.Duration,
) *Sweeper {
	if interval == 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		index:    idx,
		actor:    actor,
		session:  sess,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep, then sweeps periodically
func (sw *Sweeper) Start(ctx context.Context) error {
	// Run immediately on start
	if _, err := sw.Collect(ctx); err != nil {
		sw.logger.Warn("initial sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(sw.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sw.Collect(ctx); err != nil {
					sw.logger.Error("sweep failed",
						logger.Error(err))
				}
			case <-sw.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (sw *Sweeper) Stop() {
	close(sw.stopCh)
}

// Collect prunes dangling relations and orphan bookmarks, then clears a
// stale active group pointer.
func (sw *Sweeper) Collect(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	err := sw.actor.Do(func() error {
		dangling, orphans, err := sw.index.Prune()
		report.DanglingRelations, report.OrphanBookmarks = dangling, orphans
		if err != nil {
			return err
		}

		active, err := sw.session.ActiveGroupID(ctx)
		if err != nil || active == "" {
			return err
		}
		if _, ok := sw.index.GetGroup(active); ok {
			return nil
		}
		if err := sw.session.SetActiveGroupID(ctx, ""); err != nil {
			return err
		}
		report.ClearedActive = true
		sw.index.NotifyGroups()
		return nil
	})

	if report.Empty() {
		sw.logger.Debug("nothing to sweep")
	} else {
		sw.logger.Info("sweep completed",
			logger.Int("dangling_relations", report.DanglingRelations),
			logger.Int("orphan_bookmarks", report.OrphanBookmarks),
			logger.Bool("cleared_active", report.ClearedActive))
	}
	return report, err
}
