package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/service"
)

type editRequest struct {
	File    string               `json:"file" validate:"required"`
	Changes []service.TextChange `json:"changes" validate:"required,dive"`
}

type renamePair struct {
	OldFile string `json:"oldFile" validate:"required"`
	NewFile string `json:"newFile" validate:"required"`
}

type renameRequest struct {
	Files []renamePair `json:"files" validate:"required,dive"`
}

type deleteRequest struct {
	Files []string `json:"files" validate:"required,dive,required"`
}

type affectedResponse struct {
	Affected int `json:"affected"`
}

// Edits applies the content changes of one document edit to the
// bookmarks of that file.
func Edits(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		n, err := d.Services.Tracker.ApplyEdit(r.Context(), req.File, req.Changes)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
	}
}

// Renames moves bookmarks along with renamed files. Pairs are applied in
// order; the first failure stops the batch.
func Renames(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		total := 0
		for _, p := range req.Files {
			n, err := d.Services.Bookmarks.UpdateBookmarkPath(r.Context(), p.OldFile, p.NewFile)
			if err != nil {
				writeError(w, d, r, err)
				return
			}
			total += n
		}
		writeJSON(w, http.StatusOK, affectedResponse{Affected: total})
	}
}

// Deletes drops the bookmarks of deleted files.
func Deletes(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, d, r, err)
			return
		}
		total := 0
		for _, f := range req.Files {
			n, err := d.Services.Bookmarks.HandleFileDeleted(r.Context(), f)
			if err != nil {
				writeError(w, d, r, err)
				return
			}
			total += n
		}
		writeJSON(w, http.StatusOK, affectedResponse{Affected: total})
	}
}
