package index

import (
	"fmt"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// GetGroup retrieves a group by ID
func (idx *MemoryIndex) GetGroup(id string) (domain.Group, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	g, ok := idx.groups[id]
	return g.Clone(), ok
}

// AllGroups returns every group in display order.
func (idx *MemoryIndex) AllGroups() []domain.Group {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.groupsLocked()
}

// AddGroup inserts a new group.
func (idx *MemoryIndex) AddGroup(g domain.Group) error {
	return idx.mutate(func() (change, error) {
		if _, exists := idx.groups[g.ID]; exists {
			return 0, fmt.Errorf("group %s already exists: %w", g.ID, domain.ErrConflict)
		}
		idx.groups[g.ID] = g.Clone()
		return changedGroups, nil
	})
}

// UpdateGroup applies update to one group and bumps UpdatedAt. The id cannot
// be changed.
func (idx *MemoryIndex) UpdateGroup(id string, update func(*domain.Group)) error {
	return idx.mutate(func() (change, error) {
		g, ok := idx.groups[id]
		if !ok {
			return 0, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		g = g.Clone()
		update(&g)
		g.ID = id
		g.UpdatedAt = domain.NowMillis()
		idx.groups[id] = g
		return changedGroups, nil
	})
}

// DeleteGroup removes a group and every relation into it, then deletes
// the member bookmarks left without any relation. All of it is one write
// and one round of notifications.
func (idx *MemoryIndex) DeleteGroup(id string) (relations, orphans int, err error) {
	err = idx.mutate(func() (change, error) {
		if _, ok := idx.groups[id]; !ok {
			return 0, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		delete(idx.groups, id)

		var members []string
		relations = idx.dropRelationsLocked(func(r domain.Relation) bool {
			if r.GroupID != id {
				return false
			}
			members = append(members, r.BookmarkID)
			return true
		})
		orphans = idx.sweepOrphansLocked(members)

		c := changedGroups | changedRelations
		if orphans > 0 {
			c |= changedBookmarks
		}
		return c, nil
	})
	return relations, orphans, err
}

// ReorderGroups sets each listed group's order to its position in ids.
// Unknown ids are skipped and unlisted groups keep their order.
func (idx *MemoryIndex) ReorderGroups(ids []string) error {
	return idx.mutate(func() (change, error) {
		for pos, id := range ids {
			g, ok := idx.groups[id]
			if !ok {
				continue
			}
			g.Order = pos
			idx.groups[id] = g
		}
		return changedGroups, nil
	})
}

// MaxGroupNumber returns the highest group number in use (0 if none).
func (idx *MemoryIndex) MaxGroupNumber() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	maxNumber := 0
	for _, g := range idx.groups {
		maxNumber = max(maxNumber, g.Number)
	}
	return maxNumber
}

// MaxGroupOrder returns the highest group order, or -1 with no groups.
func (idx *MemoryIndex) MaxGroupOrder() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	maxOrder := -1
	for _, g := range idx.groups {
		maxOrder = max(maxOrder, g.Order)
	}
	return maxOrder
}
