package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

type backupsResponse struct {
	Backups []string `json:"backups"`
}

type backupResponse struct {
	Name string `json:"name"`
}

// ListBackups returns snapshot names, newest first.
func ListBackups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := d.Backups.Backups()
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, backupsResponse{Backups: names})
	}
}

// CreateBackup snapshots the documents now, outside the debounce.
func CreateBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := d.Backups.Backup()
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, backupResponse{Name: name})
	}
}

// RestoreBackup copies a snapshot over the live documents and reloads.
func RestoreBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Reloader == nil {
			writeError(w, d, r, notConfigured("reloader"))
			return
		}
		name := chi.URLParam(r, "name")
		if err := d.Reloader.Restore(r.Context(), d.Backups, name); err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("backup restored via endpoint",
			logger.String("backup", name),
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusOK, backupResponse{Name: name})
	}
}
