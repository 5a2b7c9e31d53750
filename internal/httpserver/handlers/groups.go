package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
)

type groupView struct {
	domain.Group
	BookmarkCount int  `json:"bookmarkCount"`
	Active        bool `json:"active"`
}

type createGroupRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
}

type patchGroupRequest struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	SortMode *string `json:"sortMode"`
}

type idsRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

type activeGroup struct {
	ID string `json:"id"`
}

type ghostTextResponse struct {
	ShowGhostText bool `json:"showGhostText"`
}

type relationOrderRequest struct {
	RelationIDs []string `json:"relationIds" validate:"required_without=BookmarkIDs,excluded_with=BookmarkIDs"`
	BookmarkIDs []string `json:"bookmarkIds" validate:"required_without=RelationIDs"`
}

func viewOf(d deps.Deps, g domain.Group, activeID string) groupView {
	return groupView{
		Group:         g,
		BookmarkCount: d.Services.Groups.GetBookmarkCountInGroup(g.ID),
		Active:        g.ID == activeID,
	}
}

// ListGroups returns groups in display order with their bookmark counts.
func ListGroups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeID, err := d.Services.Groups.GetActiveGroupID(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		groups := d.Services.Groups.GetAllGroups()
		out := make([]groupView, 0, len(groups))
		for _, g := range groups {
			out = append(out, viewOf(d, g, activeID))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func CreateGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGroupRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		g, err := d.Services.Groups.CreateGroup(r.Context(), req.Name, req.Color)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(d, g, ""))
	}
}

func GetGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		g, ok := d.Services.Groups.GetGroup(id)
		if !ok {
			writeError(w, d, r, fmt.Errorf("group %s: %w", id, domain.ErrNotFound))
			return
		}
		activeID, err := d.Services.Groups.GetActiveGroupID(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(d, g, activeID))
	}
}

// PatchGroup renames, recolors or changes the sort mode of a group. Only
// the fields present are applied, in that order.
func PatchGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req patchGroupRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		if req.Name == nil && req.Color == nil && req.SortMode == nil {
			writeError(w, d, r, fmt.Errorf("nothing to update: %w", domain.ErrValidation))
			return
		}
		ctx := r.Context()
		if req.Name != nil {
			if err := d.Services.Groups.RenameGroup(ctx, id, *req.Name); err != nil {
				writeError(w, d, r, err)
				return
			}
		}
		if req.Color != nil {
			if err := d.Services.Groups.ChangeGroupColor(ctx, id, *req.Color); err != nil {
				writeError(w, d, r, err)
				return
			}
		}
		if req.SortMode != nil {
			if err := d.Services.Groups.ChangeSortMode(ctx, id, *req.SortMode); err != nil {
				writeError(w, d, r, err)
				return
			}
		}
		GetGroup(d)(w, r)
	}
}

func DeleteGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Services.Groups.DeleteGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ToggleGhostText(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.Services.Groups.ToggleGroupGhostText(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ghostTextResponse{ShowGhostText: v})
	}
}

func ReorderGroups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req idsRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		if err := d.Services.Groups.ReorderGroups(r.Context(), req.IDs); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetActiveGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := d.Services.Groups.GetActiveGroupID(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, activeGroup{ID: id})
	}
}

// SetActiveGroup points the session at a group; an empty id clears it.
func SetActiveGroup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activeGroup
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		if err := d.Services.Groups.SetActiveGroup(r.Context(), req.ID); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GroupRelations(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := d.Services.Groups.GetGroup(id); !ok {
			writeError(w, d, r, fmt.Errorf("group %s: %w", id, domain.ErrNotFound))
			return
		}
		out := d.Services.Relations.GetRelationsInGroup(id)
		if out == nil {
			out = []domain.Relation{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ReorderGroupRelations accepts either relation ids or bookmark ids, not
// both.
func ReorderGroupRelations(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req relationOrderRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		var err error
		if req.RelationIDs != nil {
			err = d.Services.Relations.ReorderRelations(r.Context(), id, req.RelationIDs)
		} else {
			err = d.Services.Relations.ReorderBookmarksInGroup(r.Context(), id, req.BookmarkIDs)
		}
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
