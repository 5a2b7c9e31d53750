package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/handlers"
)

func init() { Register("bookmarks", registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Get("/api/bookmarks", handlers.ListBookmarks(d))
	r.Post("/api/bookmarks", handlers.CreateBookmark(d))
	r.Get("/api/bookmarks/{id}", handlers.GetBookmark(d))
	r.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
	r.Put("/api/bookmarks/{id}/position", handlers.UpdateBookmarkPosition(d))
	r.Get("/api/bookmarks/{id}/groups", handlers.BookmarkGroups(d))
}
