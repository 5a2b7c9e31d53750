package index

import (
	"fmt"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// GetBookmark retrieves a bookmark by ID
func (idx *MemoryIndex) GetBookmark(id string) (domain.Bookmark, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	b, ok := idx.bookmarks[id]
	return b, ok
}

// AllBookmarks returns every bookmark, oldest first.
func (idx *MemoryIndex) AllBookmarks() []domain.Bookmark {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.bookmarksLocked()
}

// BookmarksByFile returns the bookmarks of one file, oldest first.
func (idx *MemoryIndex) BookmarksByFile(fileURI string) []domain.Bookmark {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []domain.Bookmark
	for _, b := range idx.bookmarks {
		if b.FileURI == fileURI {
			out = append(out, b)
		}
	}
	sortBookmarks(out)
	return out
}

// HasBookmarksInFile reports whether any bookmark points into fileURI.
func (idx *MemoryIndex) HasBookmarksInFile(fileURI string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, b := range idx.bookmarks {
		if b.FileURI == fileURI {
			return true
		}
	}
	return false
}

// AddBookmark inserts a new bookmark.
func (idx *MemoryIndex) AddBookmark(b domain.Bookmark) error {
	return idx.mutate(func() (change, error) {
		if _, exists := idx.bookmarks[b.ID]; exists {
			return 0, fmt.Errorf("bookmark %s already exists: %w", b.ID, domain.ErrConflict)
		}
		idx.bookmarks[b.ID] = b
		return changedBookmarks, nil
	})
}

// UpdateBookmark applies update to one bookmark and bumps UpdatedAt. The id
// cannot be changed.
func (idx *MemoryIndex) UpdateBookmark(id string, update func(*domain.Bookmark)) error {
	return idx.mutate(func() (change, error) {
		b, ok := idx.bookmarks[id]
		if !ok {
			return 0, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
		}
		update(&b)
		b.ID = id
		b.UpdatedAt = domain.NowMillis()
		idx.bookmarks[id] = b
		return changedBookmarks, nil
	})
}

// BatchUpdateBookmarks offers every bookmark to update, which reports
// whether it changed it. Changed bookmarks get a fresh UpdatedAt; the
// collection is written and notified once, and only if something changed.
func (idx *MemoryIndex) BatchUpdateBookmarks(update func(*domain.Bookmark) bool) (int, error) {
	changed := 0
	err := idx.mutate(func() (change, error) {
		now := domain.NowMillis()
		for id, b := range idx.bookmarks {
			if !update(&b) {
				continue
			}
			b.ID = id
			b.UpdatedAt = now
			idx.bookmarks[id] = b
			changed++
		}
		if changed == 0 {
			return 0, nil
		}
		return changedBookmarks, nil
	})
	return changed, err
}

// UpdateBookmarkPaths rewrites the file of every bookmark whose file is
// exactly oldURI.
func (idx *MemoryIndex) UpdateBookmarkPaths(oldURI, newURI string) (int, error) {
	if oldURI == newURI {
		return 0, nil
	}
	return idx.BatchUpdateBookmarks(func(b *domain.Bookmark) bool {
		if b.FileURI != oldURI {
			return false
		}
		b.FileURI = newURI
		return true
	})
}

// DeleteBookmark removes a bookmark and every relation pointing at it.
func (idx *MemoryIndex) DeleteBookmark(id string) error {
	return idx.mutate(func() (change, error) {
		if _, ok := idx.bookmarks[id]; !ok {
			return 0, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
		}
		delete(idx.bookmarks, id)
		idx.dropRelationsLocked(func(r domain.Relation) bool { return r.BookmarkID == id })
		return changedBookmarks | changedRelations, nil
	})
}

// DeleteBookmarksInFile removes every bookmark of a file, with their
// relations, in a single write per collection.
func (idx *MemoryIndex) DeleteBookmarksInFile(fileURI string) (int, error) {
	removed := 0
	err := idx.mutate(func() (change, error) {
		gone := make(map[string]struct{})
		for id, b := range idx.bookmarks {
			if b.FileURI == fileURI {
				gone[id] = struct{}{}
				delete(idx.bookmarks, id)
			}
		}
		removed = len(gone)
		if removed == 0 {
			return 0, nil
		}
		idx.dropRelationsLocked(func(r domain.Relation) bool {
			_, hit := gone[r.BookmarkID]
			return hit
		})
		return changedBookmarks | changedRelations, nil
	})
	return removed, err
}

// dropRelationsLocked deletes every relation matching pred.
func (idx *MemoryIndex) dropRelationsLocked(pred func(domain.Relation) bool) int {
	n := 0
	for id, r := range idx.relations {
		if pred(r) {
			delete(idx.relations, id)
			n++
		}
	}
	return n
}
