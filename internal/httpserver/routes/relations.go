package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/handlers"
)

func init() { Register("relations", registerRelations) }

func registerRelations(r chi.Router, d deps.Deps) {
	r.Post("/api/relations", handlers.AddRelation(d))
	r.Delete("/api/relations/{bookmarkID}/{groupID}", handlers.RemoveRelation(d))
	r.Put("/api/relations/{bookmarkID}/{groupID}/title", handlers.UpdateRelationTitle(d))
	r.Post("/api/relations/{bookmarkID}/{groupID}/move", handlers.MoveRelation(d))
}
