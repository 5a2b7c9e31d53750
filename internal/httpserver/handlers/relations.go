package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
)

type addRelationRequest struct {
	BookmarkID string `json:"bookmarkId" validate:"required"`
	GroupID    string `json:"groupId" validate:"required"`
	Title      string `json:"title"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type moveRequest struct {
	ToGroupID string  `json:"toGroupId" validate:"required"`
	Title     *string `json:"title"`
}

// AddRelation links an existing bookmark into a group. Copying a bookmark
// to another group is the same call.
func AddRelation(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRelationRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		rel, err := d.Services.Relations.AddBookmarkToGroup(r.Context(), req.BookmarkID, req.GroupID, req.Title)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rel)
	}
}

// RemoveRelation unlinks a bookmark from a group; the bookmark goes too if
// that was its last group.
func RemoveRelation(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := d.Services.Relations.RemoveBookmarkFromGroup(r.Context(),
			chi.URLParam(r, "bookmarkID"), chi.URLParam(r, "groupID"))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func UpdateRelationTitle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req titleRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		err := d.Services.Relations.UpdateBookmarkTitle(r.Context(),
			chi.URLParam(r, "bookmarkID"), chi.URLParam(r, "groupID"), req.Title)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func MoveRelation(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		rel, err := d.Services.Relations.MoveBookmarkToGroup(r.Context(),
			chi.URLParam(r, "bookmarkID"), chi.URLParam(r, "groupID"), req.ToGroupID, req.Title)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}
