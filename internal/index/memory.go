package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/event"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/store/file"
)

// Persister is the durable backing of the index. Each Save call replaces the
// whole collection.
type Persister interface {
	Load() file.Snapshot
	SaveBookmarks([]domain.Bookmark) error
	SaveGroups([]domain.Group) error
	SaveRelations([]domain.Relation) error
}

// change flags the collections touched by one logical operation.
type change uint8

const (
	changedBookmarks change = 1 << iota
	changedGroups
	changedRelations

	changedAll = changedBookmarks | changedGroups | changedRelations
)

// MemoryIndex owns the live bookmarks, groups and relations. Every mutation
// is applied in memory, the affected collections are written in full, and
// then each touched collection notifies its subscribers once.
//
// Readers always get copies; nothing returned aliases internal state.
type MemoryIndex struct {
	mu        sync.RWMutex
	bookmarks map[string]domain.Bookmark // ID -> Bookmark
	groups    map[string]domain.Group    // ID -> Group
	relations map[string]domain.Relation // ID -> Relation
	lastLoad  time.Time                  // Timestamp of last LoadAll

	persist Persister
	logger  logger.Logger

	bookmarksChanged *event.Emitter
	groupsChanged    *event.Emitter
	relationsChanged *event.Emitter
}

// NewMemoryIndex creates an empty index backed by p.
func NewMemoryIndex(p Persister, log logger.Logger) *MemoryIndex {
	return &MemoryIndex{
		bookmarks:        make(map[string]domain.Bookmark),
		groups:           make(map[string]domain.Group),
		relations:        make(map[string]domain.Relation),
		persist:          p,
		logger:           log,
		bookmarksChanged: event.NewEmitter(),
		groupsChanged:    event.NewEmitter(),
		relationsChanged: event.NewEmitter(),
	}
}

// LoadAll replaces all three collections with what the persister holds.
// Readers never observe a partially loaded state. Load problems come back
// as diagnostics; they never fail the load.
func (idx *MemoryIndex) LoadAll(ctx context.Context) ([]file.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := idx.persist.Load()

	bookmarks := make(map[string]domain.Bookmark, len(snap.Bookmarks))
	for _, b := range snap.Bookmarks {
		bookmarks[b.ID] = b
	}
	groups := make(map[string]domain.Group, len(snap.Groups))
	for _, g := range snap.Groups {
		groups[g.ID] = g.Clone()
	}
	relations, rekeyed, dropped := keyRelations(snap.Relations)

	diags := snap.Diagnostics
	idx.mu.Lock()
	idx.bookmarks = bookmarks
	idx.groups = groups
	idx.relations = relations
	idx.lastLoad = time.Now()
	if rekeyed > 0 || dropped > 0 {
		diags = append(diags, file.Repaired(file.RelationsFile, fmt.Sprintf(
			"%d relation id(s) rederived from their bookmark and group, %d duplicate pair(s) dropped",
			rekeyed, dropped)))
		if err := idx.persist.SaveRelations(idx.relationsLocked()); err != nil {
			idx.logger.Error("failed to rewrite repaired relations", logger.Error(err))
		}
	}
	idx.mu.Unlock()

	for _, d := range diags {
		idx.logger.Warn("load diagnostic",
			logger.String("document", d.Document),
			logger.String("kind", string(d.Kind)),
			logger.String("message", d.Message))
	}
	idx.logger.Info("index loaded",
		logger.Int("bookmarks", len(bookmarks)),
		logger.Int("groups", len(groups)),
		logger.Int("relations", len(relations)))

	idx.notify(changedAll)
	return diags, nil
}

// keyRelations indexes relations by the id derived from their endpoints.
// The first relation of a pair wins; later ones are dropped.
func keyRelations(rs []domain.Relation) (out map[string]domain.Relation, rekeyed, dropped int) {
	out = make(map[string]domain.Relation, len(rs))
	for _, r := range rs {
		id := domain.RelationID(r.BookmarkID, r.GroupID)
		if r.ID != id {
			r.Rekey(r.BookmarkID, r.GroupID)
			rekeyed++
		}
		if _, dup := out[id]; dup {
			dropped++
			continue
		}
		out[id] = r
	}
	return out, rekeyed, dropped
}

// GetLastLoad returns the timestamp of the last LoadAll.
func (idx *MemoryIndex) GetLastLoad() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastLoad
}

// ─────────────────────────────────────────────────────────────────
// Subscriptions
// ─────────────────────────────────────────────────────────────────

// SubscribeBookmarks registers fn for bookmark changes.
func (idx *MemoryIndex) SubscribeBookmarks(fn func()) (unsubscribe func()) {
	return idx.bookmarksChanged.Subscribe(fn)
}

// SubscribeGroups registers fn for group changes, including active group
// switches.
func (idx *MemoryIndex) SubscribeGroups(fn func()) (unsubscribe func()) {
	return idx.groupsChanged.Subscribe(fn)
}

// SubscribeRelations registers fn for relation changes.
func (idx *MemoryIndex) SubscribeRelations(fn func()) (unsubscribe func()) {
	return idx.relationsChanged.Subscribe(fn)
}

// NotifyGroups fires the groups notification without touching any record.
func (idx *MemoryIndex) NotifyGroups() {
	idx.notify(changedGroups)
}

// notify fires in definition order: owners before relations.
func (idx *MemoryIndex) notify(c change) {
	if c&changedBookmarks != 0 {
		idx.bookmarksChanged.Emit()
	}
	if c&changedGroups != 0 {
		idx.groupsChanged.Emit()
	}
	if c&changedRelations != 0 {
		idx.relationsChanged.Emit()
	}
}

// ─────────────────────────────────────────────────────────────────
// Mutation plumbing
// ─────────────────────────────────────────────────────────────────

// mutate runs fn under the write lock, persists what fn reports as changed
// and, once the lock is released, notifies. A write failure keeps the
// in-memory change and suppresses the notification.
func (idx *MemoryIndex) mutate(fn func() (change, error)) error {
	idx.mu.Lock()
	c, err := fn()
	if err == nil && c != 0 {
		err = idx.persistLocked(c)
	}
	idx.mu.Unlock()

	if err != nil {
		return err
	}
	idx.notify(c)
	return nil
}

func (idx *MemoryIndex) persistLocked(c change) error {
	var errs []error
	if c&changedBookmarks != 0 {
		if err := idx.persist.SaveBookmarks(idx.bookmarksLocked()); err != nil {
			errs = append(errs, err)
		}
	}
	if c&changedGroups != 0 {
		if err := idx.persist.SaveGroups(idx.groupsLocked()); err != nil {
			errs = append(errs, err)
		}
	}
	if c&changedRelations != 0 {
		if err := idx.persist.SaveRelations(idx.relationsLocked()); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	idx.logger.Error("failed to persist collection", logger.Error(err))
	if !errors.Is(err, domain.ErrStorage) {
		err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return err
}

// ─────────────────────────────────────────────────────────────────
// Ordered snapshots (callers hold at least the read lock)
// ─────────────────────────────────────────────────────────────────

func (idx *MemoryIndex) bookmarksLocked() []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(idx.bookmarks))
	for _, b := range idx.bookmarks {
		out = append(out, b)
	}
	sortBookmarks(out)
	return out
}

func (idx *MemoryIndex) groupsLocked() []domain.Group {
	out := make([]domain.Group, 0, len(idx.groups))
	for _, g := range idx.groups {
		out = append(out, g.Clone())
	}
	sortGroups(out)
	return out
}

func (idx *MemoryIndex) relationsLocked() []domain.Relation {
	out := make([]domain.Relation, 0, len(idx.relations))
	for _, r := range idx.relations {
		out = append(out, r)
	}
	sortRelations(out)
	return out
}

func sortBookmarks(bs []domain.Bookmark) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].CreatedAt != bs[j].CreatedAt {
			return bs[i].CreatedAt < bs[j].CreatedAt
		}
		return bs[i].ID < bs[j].ID
	})
}

func sortGroups(gs []domain.Group) {
	sort.Slice(gs, func(i, j int) bool {
		if gs[i].Order != gs[j].Order {
			return gs[i].Order < gs[j].Order
		}
		if gs[i].Number != gs[j].Number {
			return gs[i].Number < gs[j].Number
		}
		return gs[i].ID < gs[j].ID
	})
}

func sortRelations(rs []domain.Relation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt != rs[j].CreatedAt {
			return rs[i].CreatedAt < rs[j].CreatedAt
		}
		return rs[i].ID < rs[j].ID
	})
}

func sortByRank(rs []domain.Relation) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Order < rs[j].Order
	})
}

// ReplaceAll swaps every collection for the given data and writes all three
// documents. Relation ids are rederived and duplicate pairs collapse.
func (idx *MemoryIndex) ReplaceAll(bookmarks []domain.Bookmark, groups []domain.Group, relations []domain.Relation) error {
	return idx.mutate(func() (change, error) {
		idx.bookmarks = make(map[string]domain.Bookmark, len(bookmarks))
		for _, b := range bookmarks {
			idx.bookmarks[b.ID] = b
		}
		idx.groups = make(map[string]domain.Group, len(groups))
		for _, g := range groups {
			idx.groups[g.ID] = g.Clone()
		}
		idx.relations, _, _ = keyRelations(relations)
		return changedAll, nil
	})
}

// Clear empties the index and the documents.
func (idx *MemoryIndex) Clear() error {
	return idx.ReplaceAll(nil, nil, nil)
}

// Counts returns the size of each collection.
func (idx *MemoryIndex) Counts() (bookmarks, groups, relations int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.bookmarks), len(idx.groups), len(idx.relations)
}
