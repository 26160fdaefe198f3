package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/studyplan/internal/storage"
	"github.com/conorfennell/studyplan/internal/sync"
)

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
	Set  string `json:"set" validate:"required"`
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) ([]storage.Source, bool) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		slog.Error("Error getting sources", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get sources")
		return nil, false
	}
	if sources == nil {
		sources = []storage.Source{}
	}
	return sources, true
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, ok := s.listSources(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sources)
}

// handlePostSource adds a new source.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !s.decode(w, r, &req) {
		return
	}

	source, err := sync.AddSource(r.Context(), s.db, req.Path, req.Set)
	if err != nil {
		slog.Warn("Error adding source", "path", req.Path, "error", err)
		respondError(w, http.StatusBadRequest, "invalid_source", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, source)
}

// handleDeleteSource deletes a source. The set it fed is kept.
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid source ID")
		return
	}

	found, err := s.db.DeleteSource(r.Context(), id)
	if err != nil {
		slog.Error("Error deleting source", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete source")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "source_not_found", "no source with that ID")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// handlePostSync runs a sync in the foreground and returns its report.
func (s *Server) handlePostSync(w http.ResponseWriter, r *http.Request) {
	report, err := sync.RunSync(r.Context(), s.db, s.qa, s.reposDir)
	if err != nil {
		slog.Error("Error running sync", "error", err)
		respondError(w, http.StatusInternalServerError, "sync_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}
