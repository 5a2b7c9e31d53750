package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

type reloadResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Reload asks the reloader to re-read the documents from disk.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if triggerReload(d) {
			d.Logger.Info("manual reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, reloadResponse{Triggered: true, Message: "reload triggered"})
			return
		}
		d.Logger.Warn("reload already pending",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusTooManyRequests, reloadResponse{Message: "reload already pending, please wait"})
	}
}

// triggerReload does a non-blocking send; false means one is already queued.
func triggerReload(d deps.Deps) bool {
	if d.ReloadTrigger == nil {
		return false
	}
	select {
	case d.ReloadTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}
