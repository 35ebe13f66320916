package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/laomst/lmrc/internal/apperr"
	"github.com/laomst/lmrc/internal/journal"
	"github.com/laomst/lmrc/internal/serial"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListIndex handles GET /api/index.
func (h *Handler) ListIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List()
	if err != nil {
		slog.Error("list index failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

// GetEntry handles GET /api/index/{serial}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "serial")
	if !serial.Valid(s) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid serial"))
		return
	}
	entry, err := h.svc.Lookup(s)
	if err != nil {
		if errors.Is(err, apperr.ErrDocumentNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("lookup failed", slog.String("serial", s), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Verify handles POST /api/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Verify()
	if err != nil {
		slog.Error("verify failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Journal handles GET /api/journal.
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Journal(limit)
	if err != nil {
		if errors.Is(err, apperr.ErrJournalDisabled) {
			writeJSON(w, http.StatusNotImplemented, errorBody("journal disabled"))
			return
		}
		slog.Error("journal query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
