package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
)

// Sweep runs the orphan sweep now and reports what it removed.
func Sweep(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sweeper == nil {
			writeError(w, d, r, notConfigured("sweeper"))
			return
		}
		report, err := d.Sweeper.Collect(r.Context())
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
