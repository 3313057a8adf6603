// Package api exposes the notes service over HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kuitang/quicknotes/internal/config"
	"github.com/kuitang/quicknotes/internal/errs"
	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/obs"
)

// MaxBodyBytes caps create/update request bodies.
const MaxBodyBytes = 1 << 20

// HealthInfo is static deployment information reported by GET /health.
type HealthInfo struct {
	Backend string
	// ConnectionConfigured reports whether the backend's connection
	// string is present in the environment.
	ConnectionConfigured bool
}

// Handler wraps the notes service and provides HTTP handlers
type Handler struct {
	notesService *notes.Service
	health       HealthInfo
}

// NewHandler creates a new API handler with the given notes service
func NewHandler(notesService *notes.Service, health HealthInfo) *Handler {
	return &Handler{notesService: notesService, health: health}
}

// RegisterRoutes registers all notes API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /notes", h.ListNotes)
	mux.HandleFunc("POST /notes", h.CreateNote)
	mux.HandleFunc("GET /notes/{id}", h.GetNote)
	mux.HandleFunc("GET /notes/{id}/html", h.GetNoteHTML)
	mux.HandleFunc("PUT /notes/{id}", h.UpdateNote)
	mux.HandleFunc("DELETE /notes/{id}", h.DeleteNote)
	mux.HandleFunc("GET /health", h.Health)
}

// ListNotes handles GET /notes - returns every note, newest update first
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := h.notesService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetNote handles GET /notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.notesService.Read(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetNoteHTML handles GET /notes/{id}/html - the note's markdown rendered
// as a sanitized standalone page
func (h *Handler) GetNoteHTML(w http.ResponseWriter, r *http.Request) {
	note, err := h.notesService.Read(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page, err := notes.RenderPage(note)
	if err != nil {
		obs.From(r.Context()).Error("render note failed", "note_id", note.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render note")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// CreateNote handles POST /notes - creates a new note
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	note, err := h.notesService.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /notes/{id} - replaces title and content
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	note, err := h.notesService.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notesService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Env     *bool  `json:"env,omitempty"`
	Backend string `json:"backend,omitempty"`
	Mongo   string `json:"mongo,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Health handles GET /health - connects to the store if needed and pings it
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.notesService.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, HealthResponse{
			OK:    false,
			Error: errs.MessageOf(err),
		})
		return
	}

	env := h.health.ConnectionConfigured
	resp := HealthResponse{OK: true, Env: &env, Backend: h.health.Backend}
	if h.health.Backend == config.BackendMongo {
		resp.Mongo = "connected"
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (notes.Input, bool) {
	var in notes.Input
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return in, false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return in, false
	}
	return in, true
}

// OKResponse acknowledges an operation without a payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a coded service error to its status and public message.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, errs.HTTPStatus(errs.CodeOf(err)), errs.MessageOf(err))
}
