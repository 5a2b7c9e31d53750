package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/groupmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// Registrar mounts one group of routes.
type Registrar func(r chi.Router, d deps.Deps)

// Option adjusts how a registrar is mounted.
type Option func(*entry)

// Streaming mounts long-lived handlers outside the request timeout.
func Streaming() Option {
	return func(e *entry) { e.streaming = true }
}

// When mounts the registrar only if enabled reports true for the deps.
func When(enabled func(d deps.Deps) bool) Option {
	return func(e *entry) { e.enabled = enabled }
}

type entry struct {
	name      string
	reg       Registrar
	streaming bool
	enabled   func(d deps.Deps) bool
}

var registry []entry

// Register queues a named route group; call from init.
func Register(name string, reg Registrar, opts ...Option) {
	e := entry{name: name, reg: reg}
	for _, opt := range opts {
		opt(&e)
	}
	registry = append(registry, e)
}

// RegisterAll mounts every enabled group. Non-streaming groups run under
// d.RequestTimeout when it is positive.
func RegisterAll(r chi.Router, d deps.Deps) {
	var mounted, skipped []string
	for _, e := range registry {
		if e.enabled != nil && !e.enabled(d) {
			skipped = append(skipped, e.name)
			continue
		}
		if e.streaming || d.RequestTimeout <= 0 {
			e.reg(r, d)
		} else {
			e.reg(r.With(middleware.Timeout(d.RequestTimeout)), d)
		}
		mounted = append(mounted, e.name)
	}
	if d.Logger != nil {
		d.Logger.Debug("routes registered",
			logger.Strings("groups", mounted),
			logger.Strings("skipped", skipped))
	}
}
