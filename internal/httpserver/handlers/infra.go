package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/redis"
)

const sessionPingTimeout = 2 * time.Second

type componentStatus struct {
	OK         bool   `json:"ok"`
	Bookmarks  *int   `json:"bookmarks,omitempty"`
	Groups     *int   `json:"groups,omitempty"`
	Relations  *int   `json:"relations,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	State      string                     `json:"state"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of the index, the session backend and backups.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookmarks, groups, relations := d.MemoryIndex.Counts()
		lastLoad := d.MemoryIndex.GetLastLoad()
		lastLoadStr := "never"
		if !lastLoad.IsZero() {
			lastLoadStr = lastLoad.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"index": {
				OK:         !lastLoad.IsZero(),
				Bookmarks:  &bookmarks,
				Groups:     &groups,
				Relations:  &relations,
				LastReload: lastLoadStr,
			},
			"session": checkSession(r.Context(), d),
			"backups": checkBackups(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			State:      determineState(components),
			Components: components,
		})
	}
}

func determineState(components map[string]componentStatus) string {
	if idx, ok := components["index"]; ok && !idx.OK {
		return "critical" // nothing loaded yet
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkSession(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "file"}
	}

	if err := redis.Ping(ctx, d.RedisClient, sessionPingTimeout); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "redis",
			Impact: "active-group-unavailable",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "redis"}
}

func checkBackups(d deps.Deps) componentStatus {
	if d.Backups == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	if _, err := d.Backups.Backups(); err != nil {
		return componentStatus{OK: false, Impact: "restore-unavailable", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: "debounced"}
}
