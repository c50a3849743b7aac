package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/thoughts/internal/apperr"
	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/sse"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc       *entryservice.Service
	backupDir string
	broker    *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *entryservice.Service, backupDir string, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, backupDir: backupDir, broker: broker}
}

func (h *Handler) publish(kind, id string) {
	if h.broker != nil {
		h.broker.PublishEntryEvent(kind, id)
	}
}

// entryID extracts the identifier from the URL (everything after /entries/).
// Encoded slashes (sub%2Fnote.md) are accepted.
func entryID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func setETag(w http.ResponseWriter, d EntryDetail) {
	w.Header().Set("ETag", `"`+d.Fingerprint+`"`)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("fingerprint mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("entry already exists"))
	case errors.Is(err, apperr.ErrUnreadableTitle):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid title"))
	default:
		slog.Error("api: "+op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListEntries handles GET /api/entries?q=.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	entries, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Total: len(entries)})
}

// GetEntry handles GET /api/entries/*.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := entryID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get entry", err, slog.String("id", id))
		return
	}
	d := detail(e)
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// CreateEntry handles POST /api/entries.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	e, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create entry", err, slog.String("title", req.Title))
		return
	}
	h.publish(sse.EntryCreated, e.ID)
	d := detail(e)
	setETag(w, d)
	writeJSON(w, http.StatusCreated, d)
}

// UpdateEntry handles PUT /api/entries/* with optional If-Match.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	id := entryID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	e, err := h.svc.Update(r.Context(), id, req, ifMatch)
	if err != nil {
		writeError(w, "update entry", err, slog.String("id", id))
		return
	}
	if e.ID != id {
		h.publish(sse.EntryDeleted, id)
		h.publish(sse.EntryCreated, e.ID)
	} else {
		h.publish(sse.EntryUpdated, id)
	}
	d := detail(e)
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// DeleteEntry handles DELETE /api/entries/*.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := entryID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete entry", err, slog.String("id", id))
		return
	}
	h.publish(sse.EntryDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// EntryAction handles POST /api/entries/{id}/favorite.
func (h *Handler) EntryAction(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(entryID(r), "/favorite")
	if !ok || id == "" {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	e, err := h.svc.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeError(w, "toggle favorite", err, slog.String("id", id))
		return
	}
	h.publish(sse.EntryUpdated, id)
	d := detail(e)
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// Backup handles POST /api/backups.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	path, err := h.svc.Backup(r.Context(), h.backupDir)
	if err != nil {
		writeError(w, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, BackupResponse{Path: path})
}
