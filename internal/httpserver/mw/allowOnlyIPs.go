package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/utils"
)

// AllowOnlyCIDRS rejects peers outside the allowed addresses and CIDRs
// with 403. An empty list lets every peer through.
func AllowOnlyCIDRS(allowed []string, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if bad := m.Rejected(); len(bad) > 0 {
		log.Warn("ignoring malformed allowed CIDR entries", logger.Strings("entries", bad))
	}
	if m.IsEmpty() {
		log.Debug("peer filter disabled")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			if !m.Allow(ip) {
				log.Debug("peer rejected", logger.String("ip", ip), logger.String("path", r.URL.Path))
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
