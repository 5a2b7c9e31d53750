package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/store/session"
)

// GroupService manages groups and the active group pointer.
type GroupService struct {
	idx     *index.MemoryIndex
	actor   *Actor
	session session.Store
	logger  logger.Logger
}

// CreateGroup appends a new group. Its number is one past the highest ever
// seen among current groups and is never changed afterwards.
func (s *GroupService) CreateGroup(_ context.Context, name, color string) (domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, fmt.Errorf("group name is empty: %w", domain.ErrValidation)
	}
	c, err := domain.ParseColor(color)
	if err != nil {
		return domain.Group{}, err
	}

	var g domain.Group
	err = s.actor.Do(func() error {
		now := domain.NowMillis()
		number := s.idx.MaxGroupNumber() + 1
		g = domain.Group{
			ID:            uuid.NewString(),
			Name:          name,
			DisplayName:   domain.DisplayName(number, name),
			Number:        number,
			Color:         c,
			Order:         s.idx.MaxGroupOrder() + 1,
			SortMode:      domain.SortCustom,
			ShowGhostText: domain.Bool(true),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.idx.AddGroup(g)
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.logger.Info("group created",
		logger.String("group", g.ID),
		logger.String("name", g.DisplayName))
	return g, nil
}

// DeleteGroup removes a group and its relations. Bookmarks that were only
// in this group are deleted, and the active pointer is cleared if it
// pointed here.
func (s *GroupService) DeleteGroup(ctx context.Context, id string) error {
	return s.actor.Do(func() error {
		relations, orphans, err := s.idx.DeleteGroup(id)
		if err != nil {
			return err
		}
		s.logger.Info("group deleted",
			logger.String("group", id),
			logger.Int("relations", relations),
			logger.Int("orphans", orphans))

		active, err := s.session.ActiveGroupID(ctx)
		if err != nil {
			s.logger.Warn("failed to read active group", logger.Error(err))
			return nil
		}
		if active != id {
			return nil
		}
		if err := s.session.SetActiveGroupID(ctx, ""); err != nil {
			return err
		}
		s.idx.NotifyGroups()
		return nil
	})
}

// RenameGroup changes a group's name. The number stays, so the display
// name keeps its prefix.
func (s *GroupService) RenameGroup(_ context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("group name is empty: %w", domain.ErrValidation)
	}
	return s.actor.Do(func() error {
		return s.idx.UpdateGroup(id, func(g *domain.Group) {
			g.Name = name
			g.DisplayName = domain.DisplayName(g.Number, name)
		})
	})
}

// ChangeGroupColor accepts a palette name or hex value.
func (s *GroupService) ChangeGroupColor(_ context.Context, id, color string) error {
	c, err := domain.ParseColor(color)
	if err != nil {
		return err
	}
	return s.actor.Do(func() error {
		return s.idx.UpdateGroup(id, func(g *domain.Group) { g.Color = c })
	})
}

func (s *GroupService) ChangeSortMode(_ context.Context, id, mode string) error {
	m, err := domain.ParseSortMode(mode)
	if err != nil {
		return err
	}
	return s.actor.Do(func() error {
		return s.idx.UpdateGroup(id, func(g *domain.Group) { g.SortMode = m })
	})
}

// ReorderGroups ranks groups in the given order. Groups not listed keep
// their current order.
func (s *GroupService) ReorderGroups(_ context.Context, ids []string) error {
	return s.actor.Do(func() error {
		return s.idx.ReorderGroups(ids)
	})
}

// ToggleGroupGhostText flips the ghost-text flag and returns the new value.
func (s *GroupService) ToggleGroupGhostText(_ context.Context, id string) (bool, error) {
	var visible bool
	err := s.actor.Do(func() error {
		return s.idx.UpdateGroup(id, func(g *domain.Group) {
			visible = !g.GhostTextVisible()
			g.ShowGhostText = domain.Bool(visible)
		})
	})
	return visible, err
}

func (s *GroupService) GetBookmarkCountInGroup(id string) int {
	return s.idx.CountRelationsInGroup(id)
}

func (s *GroupService) GetGroup(id string) (domain.Group, bool) {
	return s.idx.GetGroup(id)
}

// GetAllGroups returns groups in display order.
func (s *GroupService) GetAllGroups() []domain.Group {
	return s.idx.AllGroups()
}

// GetActiveGroupID returns the active group, or "" when none is set or the
// stored id no longer names a group.
func (s *GroupService) GetActiveGroupID(ctx context.Context) (string, error) {
	id, err := s.session.ActiveGroupID(ctx)
	if err != nil || id == "" {
		return "", err
	}
	if _, ok := s.idx.GetGroup(id); !ok {
		return "", nil
	}
	return id, nil
}

// SetActiveGroup points the session at id; "" clears it. Subscribers to
// group changes are notified either way.
func (s *GroupService) SetActiveGroup(ctx context.Context, id string) error {
	err := s.actor.Do(func() error {
		if id != "" {
			if _, ok := s.idx.GetGroup(id); !ok {
				return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
			}
		}
		return s.session.SetActiveGroupID(ctx, id)
	})
	if err != nil {
		return err
	}
	s.idx.NotifyGroups()
	return nil
}
