package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/handlers"
)

func init() { Register("editor", registerEditor) }

func registerEditor(r chi.Router, d deps.Deps) {
	r.Post("/api/editor/edits", handlers.Edits(d))
	r.Post("/api/editor/renames", handlers.Renames(d))
	r.Post("/api/editor/deletes", handlers.Deletes(d))
}
