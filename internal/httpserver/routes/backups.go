package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/handlers"
)

func init() { Register("backups", registerBackups, When(hasBackups)) }

func hasBackups(d deps.Deps) bool { return d.Backups != nil }

func registerBackups(r chi.Router, d deps.Deps) {
	r.Get("/api/backups", handlers.ListBackups(d))
	r.Post("/api/backups", handlers.CreateBackup(d))
	r.Post("/api/backups/{name}/restore", handlers.RestoreBackup(d))
}
