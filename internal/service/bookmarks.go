package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// BookmarkService creates, moves and removes bookmarks.
type BookmarkService struct {
	idx    *index.MemoryIndex
	actor  *Actor
	logger logger.Logger
}

// CreateBookmark stores a new, not yet linked bookmark. Callers are
// expected to link it right away; CreateBookmarkInGroup does both.
func (s *BookmarkService) CreateBookmark(_ context.Context, fileURI string, line, column int) (domain.Bookmark, error) {
	var b domain.Bookmark
	err := s.actor.Do(func() error {
		var err error
		b, err = s.createLocked(fileURI, line, column)
		return err
	})
	return b, err
}

// CreateBookmarkInGroup creates a bookmark and links it into groupID with
// title. If the link cannot be made the bookmark is removed again.
func (s *BookmarkService) CreateBookmarkInGroup(_ context.Context, fileURI string, line, column int, groupID, title string) (domain.Bookmark, domain.Relation, error) {
	var (
		b   domain.Bookmark
		rel domain.Relation
	)
	err := s.actor.Do(func() error {
		if _, ok := s.idx.GetGroup(groupID); !ok {
			return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
		}
		var err error
		if b, err = s.createLocked(fileURI, line, column); err != nil {
			return err
		}
		rel, err = addRelation(s.idx, b.ID, groupID, title)
		if err != nil {
			if derr := s.idx.DeleteBookmark(b.ID); derr != nil {
				s.logger.Error("failed to drop unlinked bookmark",
					logger.String("bookmark", b.ID), logger.Error(derr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, domain.Relation{}, err
	}
	return b, rel, nil
}

func (s *BookmarkService) createLocked(fileURI string, line, column int) (domain.Bookmark, error) {
	if err := validatePosition(fileURI, line, column); err != nil {
		return domain.Bookmark{}, err
	}
	now := domain.NowMillis()
	b := domain.Bookmark{
		ID:        uuid.NewString(),
		FileURI:   fileURI,
		Line:      line,
		Column:    column,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.idx.AddBookmark(b); err != nil {
		return domain.Bookmark{}, err
	}
	s.logger.Debug("bookmark created",
		logger.String("bookmark", b.ID),
		logger.String("file", fileURI),
		logger.Int("line", line))
	return b, nil
}

// DeleteBookmark removes a bookmark from every group.
func (s *BookmarkService) DeleteBookmark(_ context.Context, id string) error {
	return s.actor.Do(func() error {
		return s.idx.DeleteBookmark(id)
	})
}

func (s *BookmarkService) GetBookmark(id string) (domain.Bookmark, bool) {
	return s.idx.GetBookmark(id)
}

func (s *BookmarkService) GetAllBookmarks() []domain.Bookmark {
	return s.idx.AllBookmarks()
}

func (s *BookmarkService) GetBookmarksForFile(fileURI string) []domain.Bookmark {
	return s.idx.BookmarksByFile(fileURI)
}

// UpdateBookmarkPosition moves a bookmark to line/column.
func (s *BookmarkService) UpdateBookmarkPosition(_ context.Context, id string, line, column int) error {
	if line < 1 || column < 0 {
		return fmt.Errorf("position %d:%d: %w", line, column, domain.ErrValidation)
	}
	return s.actor.Do(func() error {
		return s.idx.UpdateBookmark(id, func(b *domain.Bookmark) {
			b.Line = line
			b.Column = column
		})
	})
}

// UpdateBookmarkPath follows a file rename. Only bookmarks whose file is
// exactly oldURI move.
func (s *BookmarkService) UpdateBookmarkPath(_ context.Context, oldURI, newURI string) (int, error) {
	if strings.TrimSpace(newURI) == "" {
		return 0, fmt.Errorf("empty target path: %w", domain.ErrValidation)
	}
	var n int
	err := s.actor.Do(func() error {
		var err error
		n, err = s.idx.UpdateBookmarkPaths(oldURI, newURI)
		return err
	})
	if err == nil && n > 0 {
		s.logger.Info("bookmarks followed rename",
			logger.String("from", oldURI),
			logger.String("to", newURI),
			logger.Int("count", n))
	}
	return n, err
}

// HandleFileDeleted drops every bookmark of a deleted file along with its
// relations.
func (s *BookmarkService) HandleFileDeleted(_ context.Context, fileURI string) (int, error) {
	var n int
	err := s.actor.Do(func() error {
		var err error
		n, err = s.idx.DeleteBookmarksInFile(fileURI)
		return err
	})
	if err == nil && n > 0 {
		s.logger.Info("bookmarks dropped with deleted file",
			logger.String("file", fileURI),
			logger.Int("count", n))
	}
	return n, err
}

// ShiftBookmarks adds delta to the line of every bookmark in fileURI whose
// line is strictly greater than threshold. Lines never drop below 1.
func (s *BookmarkService) ShiftBookmarks(_ context.Context, fileURI string, threshold, delta int) (int, error) {
	if delta == 0 {
		return 0, nil
	}
	var n int
	err := s.actor.Do(func() error {
		var err error
		n, err = s.idx.BatchUpdateBookmarks(func(b *domain.Bookmark) bool {
			if b.FileURI != fileURI || b.Line <= threshold {
				return false
			}
			line := max(1, b.Line+delta)
			if line == b.Line {
				return false
			}
			b.Line = line
			return true
		})
		return err
	})
	return n, err
}

func validatePosition(fileURI string, line, column int) error {
	switch {
	case strings.TrimSpace(fileURI) == "":
		return fmt.Errorf("empty file path: %w", domain.ErrValidation)
	case line < 1:
		return fmt.Errorf("line %d must be at least 1: %w", line, domain.ErrValidation)
	case column < 0:
		return fmt.Errorf("column %d must not be negative: %w", column, domain.ErrValidation)
	}
	return nil
}
