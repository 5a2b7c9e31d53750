// Package service holds the user-facing operations on bookmarks, groups and
// relations. Each operation is one step of the single logical actor: the
// shared Actor lock keeps composite operations (create+link, move, delete
// with orphan sweep) from interleaving.
package service

import (
	"sync"

	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/store/session"
)

// Actor serializes mutating operations across services.
type Actor struct {
	mu sync.Mutex
}

// Do runs fn while holding the actor lock.
func (a *Actor) Do(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn()
}

// Hold takes the actor lock for a read that must not see a composite
// operation half done. Call the returned func to release it.
func (a *Actor) Hold() (release func()) {
	a.mu.Lock()
	return a.mu.Unlock
}

// Services bundles the three services and the edit tracker around one
// index.
type Services struct {
	Actor     *Actor
	Bookmarks *BookmarkService
	Groups    *GroupService
	Relations *RelationService
	Tracker   *Tracker
}

// New wires every service to idx and the session store.
func New(idx *index.MemoryIndex, sess session.Store, log logger.Logger) *Services {
	actor := &Actor{}
	bookmarks := &BookmarkService{idx: idx, actor: actor, logger: log.Named("bookmarks")}
	return &Services{
		Actor:     actor,
		Bookmarks: bookmarks,
		Groups:    &GroupService{idx: idx, actor: actor, session: sess, logger: log.Named("groups")},
		Relations: &RelationService{idx: idx, actor: actor, logger: log.Named("relations")},
		Tracker:   &Tracker{bookmarks: bookmarks, logger: log.Named("tracker")},
	}
}
