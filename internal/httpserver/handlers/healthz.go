package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/store/file"
)

type healthzResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Version       string            `json:"version,omitempty"`
	Commit        string            `json:"commit,omitempty"`
	BuildDate     string            `json:"build_date,omitempty"`
	GoVersion     string            `json:"go_version,omitempty"`
	Diagnostics   []file.Diagnostic `json:"diagnostics,omitempty"`
}

func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: time.Since(start).Seconds(),
		}
		if d.Reloader != nil {
			resp.Diagnostics = d.Reloader.Diagnostics()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
