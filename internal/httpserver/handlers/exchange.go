package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/exchange"
	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// requestFormat picks the wire format from ?format=, then Content-Type,
// defaulting to JSON.
func requestFormat(r *http.Request) (exchange.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return exchange.ParseFormat(f)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return exchange.FormatYAML, nil
	}
	return exchange.FormatJSON, nil
}

func contentType(f exchange.Format) string {
	if f == exchange.FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Export writes the whole store as one document.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := requestFormat(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		doc := d.Exchange.Export()
		w.Header().Set("Content-Type", contentType(f))
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "groupmark-export."+string(f)))
		if err := exchange.Encode(w, doc, f); err != nil {
			d.Logger.Error("failed to encode export", logger.Error(err))
		}
	}
}

// Import reads a document from the body and applies it with ?mode=
// (merge by default).
func Import(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := exchange.ParseMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		f, err := requestFormat(r)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		doc, err := exchange.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), f)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		res, err := d.Exchange.Import(r.Context(), doc, mode)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		d.Logger.Info("import applied",
			logger.String("mode", string(res.Mode)),
			logger.Int("bookmarks", res.Bookmarks),
			logger.Int("groups", res.Groups),
			logger.Int("relations", res.Relations),
			logger.Int("remapped", res.Remapped))
		writeJSON(w, http.StatusOK, res)
	}
}

// notConfigured is returned by optional endpoints whose dependency is off.
func notConfigured(what string) error {
	return fmt.Errorf("%s is not configured: %w", what, domain.ErrNotFound)
}
