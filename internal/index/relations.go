package index

import (
	"fmt"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// GetRelation retrieves a relation by its composite ID
func (idx *MemoryIndex) GetRelation(id string) (domain.Relation, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	r, ok := idx.relations[id]
	return r, ok
}

// AllRelations returns every relation, oldest first.
func (idx *MemoryIndex) AllRelations() []domain.Relation {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.relationsLocked()
}

// RelationsByGroup returns the relations of one group by ascending order.
func (idx *MemoryIndex) RelationsByGroup(groupID string) []domain.Relation {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := idx.filterRelationsLocked(func(r domain.Relation) bool { return r.GroupID == groupID })
	sortByRank(out)
	return out
}

// RelationsByBookmark returns the relations of one bookmark, oldest first.
func (idx *MemoryIndex) RelationsByBookmark(bookmarkID string) []domain.Relation {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.filterRelationsLocked(func(r domain.Relation) bool { return r.BookmarkID == bookmarkID })
}

// GroupsForBookmark returns the groups a bookmark is linked into, in
// display order.
func (idx *MemoryIndex) GroupsForBookmark(bookmarkID string) []domain.Group {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []domain.Group
	for _, r := range idx.relations {
		if r.BookmarkID != bookmarkID {
			continue
		}
		if g, ok := idx.groups[r.GroupID]; ok {
			out = append(out, g.Clone())
		}
	}
	sortGroups(out)
	return out
}

// CountRelationsInGroup returns how many relations a group owns.
func (idx *MemoryIndex) CountRelationsInGroup(groupID string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, r := range idx.relations {
		if r.GroupID == groupID {
			n++
		}
	}
	return n
}

// MaxRelationOrder returns the highest order in a group, or -1 when empty.
func (idx *MemoryIndex) MaxRelationOrder(groupID string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	maxOrder := -1
	for _, r := range idx.relations {
		if r.GroupID == groupID {
			maxOrder = max(maxOrder, r.Order)
		}
	}
	return maxOrder
}

func (idx *MemoryIndex) filterRelationsLocked(pred func(domain.Relation) bool) []domain.Relation {
	var out []domain.Relation
	for _, r := range idx.relations {
		if pred(r) {
			out = append(out, r)
		}
	}
	sortRelations(out)
	return out
}

// AddRelation links a bookmark into a group. Both endpoints must exist and
// the pair must not be linked yet. The relation id is derived from the pair.
func (idx *MemoryIndex) AddRelation(r domain.Relation) error {
	return idx.mutate(func() (change, error) {
		if _, ok := idx.bookmarks[r.BookmarkID]; !ok {
			return 0, fmt.Errorf("bookmark %s: %w", r.BookmarkID, domain.ErrNotFound)
		}
		if _, ok := idx.groups[r.GroupID]; !ok {
			return 0, fmt.Errorf("group %s: %w", r.GroupID, domain.ErrNotFound)
		}
		r.ID = domain.RelationID(r.BookmarkID, r.GroupID)
		if _, exists := idx.relations[r.ID]; exists {
			return 0, fmt.Errorf("bookmark %s is already in group %s: %w", r.BookmarkID, r.GroupID, domain.ErrConflict)
		}
		idx.relations[r.ID] = r
		return changedRelations, nil
	})
}

// UpdateRelation applies update to one relation. Its endpoints and id are
// fixed; moving a bookmark is a delete plus an add.
func (idx *MemoryIndex) UpdateRelation(id string, update func(*domain.Relation)) error {
	return idx.mutate(func() (change, error) {
		r, ok := idx.relations[id]
		if !ok {
			return 0, fmt.Errorf("relation %s: %w", id, domain.ErrNotFound)
		}
		bookmarkID, groupID := r.BookmarkID, r.GroupID
		update(&r)
		r.ID, r.BookmarkID, r.GroupID = id, bookmarkID, groupID
		idx.relations[id] = r
		return changedRelations, nil
	})
}

// DeleteRelation removes one relation. It does not sweep orphans; use
// UnlinkBookmark when the bookmark may lose its last link.
func (idx *MemoryIndex) DeleteRelation(id string) error {
	return idx.mutate(func() (change, error) {
		if _, ok := idx.relations[id]; !ok {
			return 0, fmt.Errorf("relation %s: %w", id, domain.ErrNotFound)
		}
		delete(idx.relations, id)
		return changedRelations, nil
	})
}

// ReorderRelationsInGroup sets each listed relation's order to its position
// in ids. Ids that are unknown or belong to another group are ignored.
func (idx *MemoryIndex) ReorderRelationsInGroup(groupID string, ids []string) error {
	return idx.mutate(func() (change, error) {
		for pos, id := range ids {
			r, ok := idx.relations[id]
			if !ok || r.GroupID != groupID {
				continue
			}
			r.Order = pos
			idx.relations[id] = r
		}
		return changedRelations, nil
	})
}

// Prune removes relations whose bookmark or group no longer exists, then
// bookmarks left without any relation. Hand-edited or partially restored
// documents are the usual source of both.
func (idx *MemoryIndex) Prune() (danglingRelations, orphanBookmarks int, err error) {
	err = idx.mutate(func() (change, error) {
		danglingRelations = idx.dropRelationsLocked(func(r domain.Relation) bool {
			_, hasBookmark := idx.bookmarks[r.BookmarkID]
			_, hasGroup := idx.groups[r.GroupID]
			return !hasBookmark || !hasGroup
		})

		linked := make(map[string]struct{}, len(idx.relations))
		for _, r := range idx.relations {
			linked[r.BookmarkID] = struct{}{}
		}
		for id := range idx.bookmarks {
			if _, ok := linked[id]; !ok {
				delete(idx.bookmarks, id)
				orphanBookmarks++
			}
		}

		var c change
		if danglingRelations > 0 {
			c |= changedRelations
		}
		if orphanBookmarks > 0 {
			c |= changedBookmarks
		}
		return c, nil
	})
	return danglingRelations, orphanBookmarks, err
}

// UnlinkBookmark removes the relation between a bookmark and a group and,
// in the same step, deletes the bookmark if that was its last relation.
func (idx *MemoryIndex) UnlinkBookmark(bookmarkID, groupID string) (orphaned bool, err error) {
	id := domain.RelationID(bookmarkID, groupID)
	err = idx.mutate(func() (change, error) {
		if _, ok := idx.relations[id]; !ok {
			return 0, fmt.Errorf("relation %s: %w", id, domain.ErrNotFound)
		}
		delete(idx.relations, id)
		if idx.sweepOrphansLocked([]string{bookmarkID}) > 0 {
			orphaned = true
			return changedRelations | changedBookmarks, nil
		}
		return changedRelations, nil
	})
	return orphaned, err
}

// sweepOrphansLocked deletes the listed bookmarks that have no relation.
func (idx *MemoryIndex) sweepOrphansLocked(bookmarkIDs []string) int {
	if len(bookmarkIDs) == 0 {
		return 0
	}
	candidates := make(map[string]struct{}, len(bookmarkIDs))
	for _, id := range bookmarkIDs {
		if _, ok := idx.bookmarks[id]; ok {
			candidates[id] = struct{}{}
		}
	}
	for _, r := range idx.relations {
		delete(candidates, r.BookmarkID)
	}
	for id := range candidates {
		delete(idx.bookmarks, id)
	}
	return len(candidates)
}
