package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/cargo-docserver/internal/livereload"
	"github.com/conneroisu/cargo-docserver/internal/logging"
)

// Routes holds the handlers mounted by NewRouter.
type Routes struct {
	Docs *DocHandler
	// LiveReload is nil when live reload is disabled.
	LiveReload *livereload.Hub
}

// NewRouter registers the documentation routes.
//
//	GET /                         redirect to the package landing page
//	GET /__docserver/livereload   websocket, live reload only
//	GET /__docserver/livereload.js
//	GET /*                        documentation files
//
// Everything else, including other methods, answers 404 "not found".
func NewRouter(routes Routes, logger logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)

	r.Get("/", routes.Docs.ServeIndex)

	if routes.LiveReload != nil {
		r.Get(livereload.SocketPath, routes.LiveReload.ServeHTTP)
		r.Get(livereload.ScriptPath, livereload.ServeScript)
	}

	r.Get("/*", routes.Docs.ServeDoc)

	return r
}
