package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/studyplan/internal/config"
	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/gemini"
	"github.com/conorfennell/studyplan/internal/qa"
	"github.com/conorfennell/studyplan/internal/storage"
)

var timetable = []config.ExamConfig{
	{Date: "2024-07-24", Time: "15:30-17:30", Course: "ICS 3106: OR", Venue: "AUDITORIUM"},
	{Date: "2024-07-26", Time: "13:00-15:00", Course: "ICS 4205: HCI", Venue: "AUDITORIUM"},
	{Date: "2024-07-29", Time: "10:30-12:30", Course: "ICS 3103: AT", Venue: "BLUE SKY"},
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "studyplan.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	exams, err := config.ToExamEvents(timetable)
	if err != nil {
		t.Fatalf("Failed to convert exams: %v", err)
	}

	// No API key: the client answers with canned text.
	svc := qa.NewService(gemini.New(gemini.Config{}), db)
	s := NewServer(config.ServerConfig{RequestTimeout: 10 * time.Second}, db, svc, exams, t.TempDir())
	s.now = func() time.Time { return time.Date(2024, 7, 20, 9, 0, 0, 0, time.UTC) }
	return s, db
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	code, env := do(t, s, http.MethodGet, "/health", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("Expected healthy, but got %d %+v", code, env)
	}
}

func TestExtract(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/extract", map[string]string{
		"text": "Faculty of Science\n1. Define a stack\n2. Explain recursion",
	})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d %+v", code, env.Error)
	}
	var data struct {
		Questions []domain.Question `json:"questions"`
	}
	decodeData(t, env, &data)
	if len(data.Questions) != 2 || data.Questions[1].Difficulty != domain.Hard {
		t.Errorf("Unexpected questions %+v", data.Questions)
	}

	code, env = do(t, s, http.MethodPost, "/api/extract", map[string]string{})
	if code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "validation_failed" {
		t.Errorf("Expected validation failure, but got %d %+v", code, env.Error)
	}
}

func TestSchedule(t *testing.T) {
	s, _ := newTestServer(t)

	testCases := []struct {
		name      string
		method    string
		path      string
		body      interface{}
		wantDate  string
		wantFirst domain.ScheduleEntry
		wantLast  string
	}{
		{
			name:      "configured exams on exam day",
			method:    http.MethodGet,
			path:      "/api/schedule?date=2024-07-24",
			wantDate:  "2024-07-24",
			wantFirst: domain.ScheduleEntry{Time: "06:00 - 06:30", Activity: "Wake up and morning routine"},
			wantLast:  "Wind down and prepare for bed",
		},
		{
			name:     "default date is today",
			method:   http.MethodGet,
			path:     "/api/schedule",
			wantDate: "2024-07-20",
			wantLast: "Wind down and prepare for bed",
		},
		{
			name:     "posted timetable after the last exam",
			method:   http.MethodPost,
			path:     "/api/schedule",
			body:     map[string]interface{}{"date": "2025-01-01", "exams": timetable},
			wantDate: "2025-01-01",
			wantLast: "All exams completed. Great job!",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := do(t, s, tc.method, tc.path, tc.body)
			if code != http.StatusOK {
				t.Fatalf("Expected 200, but got %d %+v", code, env.Error)
			}
			var data scheduleResponse
			decodeData(t, env, &data)
			if data.Date != tc.wantDate {
				t.Errorf("Expected date %s, but got %s", tc.wantDate, data.Date)
			}
			if len(data.Entries) == 0 {
				t.Fatalf("Expected entries")
			}
			if tc.wantFirst.Time != "" && data.Entries[0] != tc.wantFirst {
				t.Errorf("Expected first entry %+v, but got %+v", tc.wantFirst, data.Entries[0])
			}
			if last := data.Entries[len(data.Entries)-1].Activity; last != tc.wantLast {
				t.Errorf("Expected last activity %q, but got %q", tc.wantLast, last)
			}
		})
	}
}

func TestScheduleRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	code, _ := do(t, s, http.MethodGet, "/api/schedule?date=24-07-2024", nil)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad date, but got %d", code)
	}

	code, env := do(t, s, http.MethodPost, "/api/schedule", map[string]interface{}{
		"exams": []map[string]string{{"date": "2024-07-24", "time": "17:00-15:00", "course": "X"}},
	})
	if code != http.StatusBadRequest || env.Error.Code != "validation_failed" {
		t.Errorf("Expected validation failure for a backwards time range, but got %d %+v", code, env.Error)
	}
}

func TestExamsProgressCalendar(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/exams?date=2024-07-22", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", code)
	}
	var exams []examView
	decodeData(t, env, &exams)
	if len(exams) != 3 {
		t.Fatalf("Expected 3 exams, but got %d", len(exams))
	}
	first := exams[0]
	if first.Code != "ICS 3106" || first.Label != "OR" || first.Time != "15:30 - 17:30" || first.DaysUntil != 2 {
		t.Errorf("Unexpected exam view %+v", first)
	}

	_, env = do(t, s, http.MethodGet, "/api/progress?date=2024-07-24", nil)
	var report struct {
		Overall int `json:"overall"`
		Exams   []struct {
			Course  string `json:"course"`
			Percent int    `json:"percent"`
		} `json:"exams"`
	}
	decodeData(t, env, &report)
	if len(report.Exams) != 3 || report.Exams[0].Percent != 100 {
		t.Errorf("Unexpected progress %+v", report)
	}

	_, env = do(t, s, http.MethodGet, "/api/calendar?date=2024-07-10", nil)
	var month struct {
		DaysInMonth int               `json:"daysInMonth"`
		ExamDays    map[string]string `json:"examDays"`
	}
	decodeData(t, env, &month)
	if month.DaysInMonth != 31 || month.ExamDays["24"] != "OR" || len(month.ExamDays) != 3 {
		t.Errorf("Unexpected month view %+v", month)
	}
}

func TestGenerateAndSets(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/qa", map[string]string{
		"text": "1. Define a stack\n2. Explain recursion",
	})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d %+v", code, env.Error)
	}
	var batch batchResponse
	decodeData(t, env, &batch)
	if len(batch.Pairs) != 2 || batch.Limited {
		t.Fatalf("Unexpected batch %+v", batch)
	}
	if !strings.Contains(batch.Pairs[0].AnswerHTML, "<strong>Define a stack</strong>") {
		t.Errorf("Expected rendered answer, but got %q", batch.Pairs[0].AnswerHTML)
	}
	if batch.Pairs[0].SearchURL == "" {
		t.Errorf("Expected a search URL")
	}

	pairs := make([]domain.QAPair, len(batch.Pairs))
	for i, p := range batch.Pairs {
		pairs[i] = p.QAPair
	}
	body := map[string]interface{}{"pairs": pairs}

	if code, env := do(t, s, http.MethodPut, "/api/sets/ds", body); code != http.StatusOK {
		t.Fatalf("Expected save to succeed, but got %d %+v", code, env.Error)
	}
	if code, env := do(t, s, http.MethodPut, "/api/sets/ds", body); code != http.StatusConflict || env.Error.Code != "set_exists" {
		t.Errorf("Expected 409 on existing set, but got %d %+v", code, env.Error)
	}
	if code, _ := do(t, s, http.MethodPut, "/api/sets/ds?mode=append", body); code != http.StatusOK {
		t.Errorf("Expected append to succeed, but got %d", code)
	}
	if code, _ := do(t, s, http.MethodPut, "/api/sets/ds?mode=merge", body); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown mode, but got %d", code)
	}

	code, env = do(t, s, http.MethodGet, "/api/sets/ds?q=recursion&page=1", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", code)
	}
	var page setPageResponse
	decodeData(t, env, &page)
	if page.Total != 2 || len(page.Items) != 2 || page.PerPage != qa.DefaultPerPage {
		t.Errorf("Expected 2 filtered pairs, but got %+v", page)
	}

	_, env = do(t, s, http.MethodGet, "/api/sets", nil)
	var sets []domain.QASet
	decodeData(t, env, &sets)
	if len(sets) != 1 || sets[0].PairCount != 4 {
		t.Errorf("Unexpected sets %+v", sets)
	}

	code, env = do(t, s, http.MethodPost, "/api/chat", map[string]string{"set": "ds", "message": "Summarise"})
	if code != http.StatusOK {
		t.Errorf("Expected chat to succeed, but got %d %+v", code, env.Error)
	}
	if code, _ := do(t, s, http.MethodPost, "/api/chat", map[string]string{"set": "nope", "message": "hi"}); code != http.StatusNotFound {
		t.Errorf("Expected 404 for chat over a missing set, but got %d", code)
	}

	if code, _ := do(t, s, http.MethodDelete, "/api/sets/ds", nil); code != http.StatusOK {
		t.Errorf("Expected delete to succeed, but got %d", code)
	}
	if code, _ := do(t, s, http.MethodGet, "/api/sets/ds", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, but got %d", code)
	}
}

func TestSources(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()

	code, env := do(t, s, http.MethodPost, "/api/sources", map[string]string{"path": dir, "set": "papers"})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, but got %d %+v", code, env.Error)
	}
	var src storage.Source
	decodeData(t, env, &src)
	if src.Type != storage.SourceLocal || src.SetName != "papers" {
		t.Errorf("Unexpected source %+v", src)
	}

	if code, _ := do(t, s, http.MethodPost, "/api/sources", map[string]string{"path": dir}); code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a set name, but got %d", code)
	}

	_, env = do(t, s, http.MethodGet, "/api/sources", nil)
	var sources []storage.Source
	decodeData(t, env, &sources)
	if len(sources) != 1 {
		t.Errorf("Expected 1 source, but got %d", len(sources))
	}

	code, env = do(t, s, http.MethodPost, "/api/sync", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected sync to succeed, but got %d %+v", code, env.Error)
	}

	path := "/api/sources/" + strconv.FormatInt(src.ID, 10)
	if code, _ := do(t, s, http.MethodDelete, path, nil); code != http.StatusOK {
		t.Errorf("Expected delete to succeed, but got %d", code)
	}
	if code, _ := do(t, s, http.MethodDelete, path, nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, but got %d", code)
	}
	if code, _ := do(t, s, http.MethodDelete, "/api/sources/abc", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad id, but got %d", code)
	}
}
