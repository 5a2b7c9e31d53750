// Package watcher follows files disappearing from the workspace behind the
// editor's back (git checkout, rm, mv in a terminal) and keeps bookmarks
// in step.
//
// Only directories holding bookmarked files are watched. A removed or
// renamed file is not acted on at once: after a grace period the path is
// checked again, so editors that save by replacing the file do not lose
// bookmarks, and a rename already reported by the editor wins. A file
// appearing in the same directory is taken as the new name only when its
// size matches the last size seen for the lost file.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/workspace"
)

// DefaultGrace is how long a vanished file may take to come back.
const DefaultGrace = time.Second

// Bookmarks is what the watcher needs from the bookmark service.
type Bookmarks interface {
	GetAllBookmarks() []domain.Bookmark
	UpdateBookmarkPath(ctx context.Context, oldURI, newURI string) (int, error)
	HandleFileDeleted(ctx context.Context, fileURI string) (int, error)
}

// loss is a bookmarked file seen going away.
type loss struct {
	path      string    // absolute path that vanished
	seen      time.Time // when it vanished
	size      int64     // last size seen, -1 if never stat'ed
	successor string    // same-size file created next to it, if any
}

type Watcher struct {
	fsw       *fsnotify.Watcher
	ws        *workspace.Workspace
	bookmarks Bookmarks
	logger    logger.Logger
	grace     time.Duration

	// loop-owned state
	dirs    map[string]struct{} // watched directories
	marked  map[string]int64    // absolute paths with bookmarks, by last size
	pending []*loss

	refresh  chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a watcher. It does nothing until Start.
func New(ws *workspace.Workspace, b Bookmarks, log logger.Logger, grace time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Watcher{
		fsw:       fsw,
		ws:        ws,
		bookmarks: b,
		logger:    log,
		grace:     grace,
		dirs:      make(map[string]struct{}),
		marked:    make(map[string]int64),
		refresh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Refresh asks the watcher to recompute its watch list. It never blocks
// and is safe to call from change notifications.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Start watches the current bookmark set and runs the event loop until
// Stop or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.started = true
	w.sync()
	w.logger.Info("workspace watcher started",
		logger.Int("directories", len(w.dirs)),
		logger.Duration("grace", w.grace))

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.grace / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-w.refresh:
				w.sync()
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handle(ev, time.Now())
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", logger.Error(err))
			case now := <-ticker.C:
				w.settle(ctx, now)
			}
		}
	}()
}

// Stop ends the loop and releases the OS watches. Pending losses are
// dropped.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started {
			<-w.done
		}
		err = w.fsw.Close()
		w.logger.Info("workspace watcher stopped")
	})
	return err
}

// sync points the OS watches at the directories of bookmarked files.
func (w *Watcher) sync() {
	marked := make(map[string]int64)
	want := make(map[string]struct{})
	for _, b := range w.bookmarks.GetAllBookmarks() {
		p, err := w.ws.Path(b.FileURI)
		if err != nil {
			continue
		}
		if _, seen := marked[p]; seen {
			continue
		}
		marked[p] = size(p)
		want[filepath.Dir(p)] = struct{}{}
	}
	w.marked = marked

	for dir := range w.dirs {
		if _, keep := want[dir]; keep {
			continue
		}
		if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.Debug("failed to unwatch directory", logger.String("dir", dir), logger.Error(err))
		}
		delete(w.dirs, dir)
	}
	for dir := range want {
		if _, have := w.dirs[dir]; have {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Debug("failed to watch directory", logger.String("dir", dir), logger.Error(err))
			continue
		}
		w.dirs[dir] = struct{}{}
	}
}

// handle records losses and pairs them with files created next to them.
func (w *Watcher) handle(ev fsnotify.Event, now time.Time) {
	path := filepath.Clean(ev.Name)
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		last, ok := w.marked[path]
		if !ok {
			return
		}
		for _, l := range w.pending {
			if l.path == path {
				l.seen = now
				return
			}
		}
		w.pending = append(w.pending, &loss{path: path, seen: now, size: last})
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if _, ok := w.marked[path]; ok {
			if n := size(path); n >= 0 {
				w.marked[path] = n
			}
			return
		}
		w.pair(path)
	}
}

// pair records path as the successor of a pending loss in the same
// directory with the same size. Copies arrive as a create and then writes,
// so a later write can still complete the match.
func (w *Watcher) pair(path string) {
	if len(w.pending) == 0 {
		return
	}
	n := size(path)
	if n < 0 {
		return
	}
	dir := filepath.Dir(path)
	for _, l := range w.pending {
		if l.successor == path {
			if l.size != n {
				l.successor = ""
			}
			return
		}
	}
	for _, l := range w.pending {
		if l.successor == "" && l.size >= 0 && l.size == n && filepath.Dir(l.path) == dir {
			l.successor = path
			return
		}
	}
}

// settle resolves losses older than the grace period.
func (w *Watcher) settle(ctx context.Context, now time.Time) {
	kept := w.pending[:0]
	for _, l := range w.pending {
		if now.Sub(l.seen) < w.grace {
			kept = append(kept, l)
			continue
		}
		w.resolve(ctx, l)
	}
	w.pending = kept
}

func (w *Watcher) resolve(ctx context.Context, l *loss) {
	if exists(l.path) {
		return
	}
	oldID, ok := w.ws.ID(l.path)
	if !ok {
		return
	}
	if l.successor != "" && size(l.successor) == l.size {
		if newID, ok := w.ws.ID(l.successor); ok {
			if _, err := w.bookmarks.UpdateBookmarkPath(ctx, oldID, newID); err != nil {
				w.logger.Error("failed to follow rename",
					logger.String("from", oldID), logger.String("to", newID), logger.Error(err))
			}
			return
		}
	}
	if _, err := w.bookmarks.HandleFileDeleted(ctx, oldID); err != nil {
		w.logger.Error("failed to drop bookmarks of deleted file",
			logger.String("file", oldID), logger.Error(err))
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// size returns the size of a regular file, or -1.
func size(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return -1
	}
	return fi.Size()
}
