package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/handlers"
)

func init() { Register("groups", registerGroups) }

func registerGroups(r chi.Router, d deps.Deps) {
	r.Get("/api/groups", handlers.ListGroups(d))
	r.Post("/api/groups", handlers.CreateGroup(d))
	r.Put("/api/groups/order", handlers.ReorderGroups(d))
	r.Get("/api/groups/active", handlers.GetActiveGroup(d))
	r.Put("/api/groups/active", handlers.SetActiveGroup(d))
	r.Get("/api/groups/{id}", handlers.GetGroup(d))
	r.Patch("/api/groups/{id}", handlers.PatchGroup(d))
	r.Delete("/api/groups/{id}", handlers.DeleteGroup(d))
	r.Post("/api/groups/{id}/ghost-text", handlers.ToggleGhostText(d))
	r.Get("/api/groups/{id}/relations", handlers.GroupRelations(d))
	r.Put("/api/groups/{id}/relations/order", handlers.ReorderGroupRelations(d))
}
