package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// Backups requested over HTTP are written under backupDir.
// broker, if non-nil, receives entry events and is mounted at GET /events
// inside the auth group.
func NewRouter(svc *entryservice.Service, authEnabled bool, token, backupDir string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, backupDir, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// File-backed identifiers are relative paths and may contain slashes,
	// so entry routes use a wildcard.
	r.Get("/entries", h.ListEntries)
	r.Post("/entries", h.CreateEntry)
	r.Get("/entries/*", h.GetEntry)
	r.Put("/entries/*", h.UpdateEntry)
	r.Delete("/entries/*", h.DeleteEntry)
	r.Post("/entries/*", h.EntryAction)

	r.Post("/backups", h.Backup)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
