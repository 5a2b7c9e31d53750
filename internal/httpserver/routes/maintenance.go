package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/handlers"
)

func init() { Register("maintenance", registerMaintenance) }

func registerMaintenance(r chi.Router, d deps.Deps) {
	r.Post("/api/reload", handlers.Reload(d))
	r.Post("/api/sweep", handlers.Sweep(d))
}
