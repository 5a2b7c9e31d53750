package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
)

type createBookmarkRequest struct {
	File    string `json:"file" validate:"required"`
	Line    int    `json:"line" validate:"gte=1"`
	Column  int    `json:"column" validate:"gte=0"`
	GroupID string `json:"groupId"`
	Title   string `json:"title"`
}

type createBookmarkResponse struct {
	Bookmark domain.Bookmark `json:"bookmark"`
	Relation domain.Relation `json:"relation"`
}

type positionRequest struct {
	Line   int `json:"line" validate:"gte=1"`
	Column int `json:"column" validate:"gte=0"`
}

// ListBookmarks returns every bookmark, or those of ?file= only.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out []domain.Bookmark
		if f := r.URL.Query().Get("file"); f != "" {
			out = d.Services.Bookmarks.GetBookmarksForFile(f)
		} else {
			out = d.Services.Bookmarks.GetAllBookmarks()
		}
		if out == nil {
			out = []domain.Bookmark{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// CreateBookmark creates a bookmark linked into groupId, falling back to
// the active group.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookmarkRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		groupID := req.GroupID
		if groupID == "" {
			active, err := d.Services.Groups.GetActiveGroupID(r.Context())
			if err != nil {
				writeError(w, d, r, err)
				return
			}
			if active == "" {
				writeError(w, d, r, fmt.Errorf("no groupId given and no active group: %w", domain.ErrValidation))
				return
			}
			groupID = active
		}
		b, rel, err := d.Services.Bookmarks.CreateBookmarkInGroup(r.Context(), req.File, req.Line, req.Column, groupID, req.Title)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, createBookmarkResponse{Bookmark: b, Relation: rel})
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b, ok := d.Services.Bookmarks.GetBookmark(id)
		if !ok {
			writeError(w, d, r, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound))
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Services.Bookmarks.DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func UpdateBookmarkPosition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req positionRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		if err := d.Services.Bookmarks.UpdateBookmarkPosition(r.Context(), chi.URLParam(r, "id"), req.Line, req.Column); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// BookmarkGroups lists the groups a bookmark belongs to.
func BookmarkGroups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := d.Services.Bookmarks.GetBookmark(id); !ok {
			writeError(w, d, r, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound))
			return
		}
		out := d.Services.Relations.GetGroupsForBookmark(id)
		if out == nil {
			out = []domain.Group{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
