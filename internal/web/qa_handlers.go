package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/gemini"
	"github.com/conorfennell/studyplan/internal/qa"
	"github.com/conorfennell/studyplan/internal/render"
	"github.com/conorfennell/studyplan/internal/storage"
)

const limitNotice = "API limit reached. Some questions could not be answered."

type chatRequest struct {
	Set     string          `json:"set"`
	Pairs   []domain.QAPair `json:"pairs" validate:"dive"`
	Message string          `json:"message" validate:"required"`
}

type saveSetRequest struct {
	Pairs []domain.QAPair `json:"pairs" validate:"required,min=1,dive"`
}

// pairView is a pair as shown to clients, with the answer rendered to HTML.
type pairView struct {
	domain.QAPair
	AnswerHTML string `json:"answerHtml"`
	SearchURL  string `json:"searchUrl,omitempty"`
}

type batchResponse struct {
	Pairs   []pairView   `json:"pairs"`
	Total   int          `json:"total"`
	Limited bool         `json:"limited"`
	Notice  string       `json:"notice,omitempty"`
	Failed  []qa.Failure `json:"failed,omitempty"`
}

type setPageResponse struct {
	Name       string     `json:"name"`
	Query      string     `json:"query,omitempty"`
	Items      []pairView `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}

func toViews(pairs []domain.QAPair) []pairView {
	views := make([]pairView, 0, len(pairs))
	for _, p := range pairs {
		html, err := render.Markdown(p.Answer)
		if err != nil {
			slog.Warn("Failed to render answer", "question", p.Question, "error", err)
		}
		views = append(views, pairView{QAPair: p, AnswerHTML: html, SearchURL: p.SearchURL()})
	}
	return views
}

// handleGenerate extracts the questions in a text and answers them.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}

	batch, err := s.qa.Generate(r.Context(), req.Text)
	if err != nil {
		slog.Error("Error generating answers", "error", err)
		respondError(w, http.StatusServiceUnavailable, "generation_failed", err.Error())
		return
	}

	resp := batchResponse{
		Pairs:   toViews(batch.Pairs),
		Total:   batch.Total,
		Limited: batch.Limited,
		Failed:  batch.Failed,
	}
	if batch.Limited {
		resp.Notice = limitNotice
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleChat answers a message using a saved set and/or the supplied pairs as context.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}

	pairs := req.Pairs
	if req.Set != "" {
		set, err := s.db.LoadSet(r.Context(), req.Set)
		if errors.Is(err, storage.ErrSetNotFound) {
			respondError(w, http.StatusNotFound, "set_not_found", "no set named "+req.Set)
			return
		}
		if err != nil {
			slog.Error("Error loading set for chat", "set", req.Set, "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load set")
			return
		}
		pairs = append(set.Pairs, pairs...)
	}

	reply, err := s.qa.Chat(r.Context(), pairs, req.Message)
	if err != nil {
		var genErr *qa.GenerationError
		if errors.As(err, &genErr) && genErr.Reason == gemini.ReasonRateLimited {
			respondError(w, http.StatusTooManyRequests, "rate_limited", limitNotice)
			return
		}
		slog.Error("Error generating chat reply", "error", err)
		respondError(w, http.StatusBadGateway, "generation_failed", "Sorry, I couldn't generate a response. Please try again.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.db.ListSets(r.Context())
	if err != nil {
		slog.Error("Error listing sets", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list sets")
		return
	}
	if sets == nil {
		sets = []domain.QASet{}
	}
	respondJSON(w, http.StatusOK, sets)
}

// handleGetSet returns one page of a set, optionally filtered by ?q=.
func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query := r.URL.Query()

	page, err := intParam(query.Get("page"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "page must be a number")
		return
	}
	perPage, err := intParam(query.Get("per_page"), qa.DefaultPerPage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "per_page must be a number")
		return
	}

	set, err := s.db.LoadSet(r.Context(), name)
	if errors.Is(err, storage.ErrSetNotFound) {
		respondError(w, http.StatusNotFound, "set_not_found", "no set named "+name)
		return
	}
	if err != nil {
		slog.Error("Error loading set", "set", name, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load set")
		return
	}

	p := qa.Paginate(qa.Filter(set.Pairs, query.Get("q")), page, perPage)
	respondJSON(w, http.StatusOK, setPageResponse{
		Name:       set.Name,
		Query:      query.Get("q"),
		Items:      toViews(p.Items),
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	})
}

// handlePutSet saves pairs under a name; ?mode= is new, replace or append.
func (s *Server) handlePutSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	mode, err := storage.ParseSaveMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}

	var req saveSetRequest
	if !s.decode(w, r, &req) {
		return
	}

	err = s.db.SaveSet(r.Context(), name, req.Pairs, mode)
	switch {
	case errors.Is(err, storage.ErrSetExists):
		respondError(w, http.StatusConflict, "set_exists", "a set named "+name+" already exists; save with mode=replace or mode=append")
		return
	case errors.Is(err, storage.ErrSetNotFound):
		respondError(w, http.StatusNotFound, "set_not_found", "no set named "+name)
		return
	case err != nil:
		slog.Error("Error saving set", "set", name, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save set")
		return
	}

	set, err := s.db.FindSetByName(r.Context(), name)
	if err != nil || set == nil {
		slog.Error("Error reading saved set", "set", name, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read saved set")
		return
	}
	slog.Info("Saved set", "set", name, "mode", mode, "pairs", set.PairCount)
	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.db.DeleteSet(r.Context(), name)
	if errors.Is(err, storage.ErrSetNotFound) {
		respondError(w, http.StatusNotFound, "set_not_found", "no set named "+name)
		return
	}
	if err != nil {
		slog.Error("Error deleting set", "set", name, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete set")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
