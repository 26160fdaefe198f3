package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/studyplan/internal/config"
	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/extract"
	"github.com/conorfennell/studyplan/internal/schedule"
)

type textRequest struct {
	Text string `json:"text" validate:"required"`
}

type scheduleRequest struct {
	Date  string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Exams []config.ExamConfig `json:"exams" validate:"dive"`
}

type scheduleResponse struct {
	Date    string                 `json:"date"`
	Entries []domain.ScheduleEntry `json:"entries"`
}

type examView struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Course    string `json:"course"`
	Code      string `json:"code"`
	Label     string `json:"label"`
	Venue     string `json:"venue"`
	DaysUntil int    `json:"daysUntil"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	questions := extract.Extract(req.Text)
	if questions == nil {
		questions = []domain.Question{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
	})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.refDate(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, scheduleResponse{
		Date:    ref.Format(time.DateOnly),
		Entries: schedule.Build(ref, s.exams),
	})
}

// handlePostSchedule builds a schedule over a caller-supplied timetable.
func (s *Server) handlePostSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !s.decode(w, r, &req) {
		return
	}

	ref := s.now()
	if req.Date != "" {
		var ok bool
		if ref, ok = parseDate(w, req.Date); !ok {
			return
		}
	}

	exams, err := config.ToExamEvents(req.Exams)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_exams", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, scheduleResponse{
		Date:    ref.Format(time.DateOnly),
		Entries: schedule.Build(ref, exams),
	})
}

func (s *Server) handleExams(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.refDate(w, r)
	if !ok {
		return
	}

	views := make([]examView, 0, len(s.exams))
	for _, e := range s.exams {
		views = append(views, examView{
			Date:      e.Date.Format(time.DateOnly),
			Time:      e.Time.Span(),
			Course:    e.Course,
			Code:      e.CourseCode(),
			Label:     e.CourseLabel(),
			Venue:     e.Venue,
			DaysUntil: schedule.DaysUntil(ref, e),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.refDate(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, schedule.Progress(ref, s.exams))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.refDate(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, schedule.Month(ref, s.exams))
}
