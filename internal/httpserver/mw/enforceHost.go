package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/utils"
)

// EnforceHost rejects requests whose Host header is neither a loopback name
// nor one of allowedHosts. It keeps web pages the user happens to open from
// reaching the bridge through DNS rebinding.
// Supports wildcard patterns like "*.example.com"; ports are ignored.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	log.Debugf("EnforceHost: initialized with extra hosts=%v", allowedHosts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if utils.IsLoopbackHost(r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			host := utils.ParseHostNoPort(r.Host)
			for _, pattern := range allowedHosts {
				if matchHost(host, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Debugf("EnforceHost: Host %s REJECTED", r.Host)
			w.WriteHeader(http.StatusForbidden)
		})
	}
}

// matchHost checks if host matches pattern (supports wildcard *.example.com)
func matchHost(host, pattern string) bool {
	if strings.EqualFold(host, pattern) {
		return true
	}

	// Wildcard match: *.example.com matches sub.example.com
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // Remove * to get .example.com
		return strings.HasSuffix(strings.ToLower(host), strings.ToLower(suffix))
	}

	return false
}
