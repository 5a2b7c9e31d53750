package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// RelationService manages which bookmarks sit in which groups.
type RelationService struct {
	idx    *index.MemoryIndex
	actor  *Actor
	logger logger.Logger
}

// AddBookmarkToGroup links a bookmark into a group at the end of its list.
func (s *RelationService) AddBookmarkToGroup(_ context.Context, bookmarkID, groupID, title string) (domain.Relation, error) {
	var rel domain.Relation
	err := s.actor.Do(func() error {
		var err error
		rel, err = addRelation(s.idx, bookmarkID, groupID, title)
		return err
	})
	return rel, err
}

// CopyBookmarkToGroup links an already grouped bookmark into one more group.
func (s *RelationService) CopyBookmarkToGroup(ctx context.Context, bookmarkID, toGroupID, title string) (domain.Relation, error) {
	return s.AddBookmarkToGroup(ctx, bookmarkID, toGroupID, title)
}

// RemoveBookmarkFromGroup unlinks a bookmark. Removing a link that does not
// exist is a no-op. A bookmark left without groups is deleted.
func (s *RelationService) RemoveBookmarkFromGroup(_ context.Context, bookmarkID, groupID string) error {
	return s.actor.Do(func() error {
		return s.removeLocked(bookmarkID, groupID)
	})
}

func (s *RelationService) removeLocked(bookmarkID, groupID string) error {
	orphaned, err := s.idx.UnlinkBookmark(bookmarkID, groupID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if orphaned {
		s.logger.Debug("orphan bookmark deleted", logger.String("bookmark", bookmarkID))
	}
	return nil
}

// UpdateBookmarkTitle retitles a bookmark inside one group.
func (s *RelationService) UpdateBookmarkTitle(_ context.Context, bookmarkID, groupID, title string) error {
	return s.actor.Do(func() error {
		return s.idx.UpdateRelation(domain.RelationID(bookmarkID, groupID), func(r *domain.Relation) {
			r.Title = title
		})
	})
}

// ReorderBookmarksInGroup ranks a group's bookmarks in the given order.
func (s *RelationService) ReorderBookmarksInGroup(ctx context.Context, groupID string, bookmarkIDs []string) error {
	ids := make([]string, len(bookmarkIDs))
	for i, bid := range bookmarkIDs {
		ids[i] = domain.RelationID(bid, groupID)
	}
	return s.ReorderRelations(ctx, groupID, ids)
}

// ReorderRelations ranks a group's relations in the given order. Relations
// not listed keep their order; ids of other groups are ignored.
func (s *RelationService) ReorderRelations(_ context.Context, groupID string, relationIDs []string) error {
	return s.actor.Do(func() error {
		if _, ok := s.idx.GetGroup(groupID); !ok {
			return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
		}
		return s.idx.ReorderRelationsInGroup(groupID, relationIDs)
	})
}

// MoveBookmarkToGroup relinks a bookmark from one group to the end of
// another. A nil or empty newTitle keeps the current title. The destination
// is checked before the source link is touched.
func (s *RelationService) MoveBookmarkToGroup(_ context.Context, bookmarkID, fromGroupID, toGroupID string, newTitle *string) (domain.Relation, error) {
	var rel domain.Relation
	err := s.actor.Do(func() error {
		if fromGroupID == toGroupID {
			return fmt.Errorf("bookmark %s is already in group %s: %w", bookmarkID, toGroupID, domain.ErrValidation)
		}
		from, ok := s.idx.GetRelation(domain.RelationID(bookmarkID, fromGroupID))
		if !ok {
			return fmt.Errorf("bookmark %s in group %s: %w", bookmarkID, fromGroupID, domain.ErrNotFound)
		}
		if _, ok := s.idx.GetGroup(toGroupID); !ok {
			return fmt.Errorf("group %s: %w", toGroupID, domain.ErrNotFound)
		}
		if _, taken := s.idx.GetRelation(domain.RelationID(bookmarkID, toGroupID)); taken {
			return fmt.Errorf("bookmark %s is already in group %s: %w", bookmarkID, toGroupID, domain.ErrConflict)
		}

		title := from.Title
		if newTitle != nil && *newTitle != "" {
			title = *newTitle
		}
		// Link first so the bookmark is never relation-less.
		var err error
		if rel, err = addRelation(s.idx, bookmarkID, toGroupID, title); err != nil {
			return err
		}
		return s.idx.DeleteRelation(from.ID)
	})
	return rel, err
}

func (s *RelationService) GetGroupsForBookmark(bookmarkID string) []domain.Group {
	return s.idx.GroupsForBookmark(bookmarkID)
}

func (s *RelationService) GetRelationsInGroup(groupID string) []domain.Relation {
	return s.idx.RelationsByGroup(groupID)
}

// addRelation appends bookmarkID to groupID. Callers hold the actor lock so
// the computed order cannot race.
func addRelation(idx *index.MemoryIndex, bookmarkID, groupID, title string) (domain.Relation, error) {
	rel := domain.Relation{
		ID:         domain.RelationID(bookmarkID, groupID),
		BookmarkID: bookmarkID,
		GroupID:    groupID,
		Title:      title,
		Order:      idx.MaxRelationOrder(groupID) + 1,
		CreatedAt:  domain.NowMillis(),
	}
	if err := idx.AddRelation(rel); err != nil {
		return domain.Relation{}, err
	}
	return rel, nil
}
