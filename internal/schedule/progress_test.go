package schedule

import (
	"testing"
	"time"

	"github.com/conorfennell/studyplan/internal/domain"
)

func TestProgress(t *testing.T) {
	exams := []domain.ExamEvent{
		exam(t, "2024-07-24", "15:30-17:30", "ICS 3106: OR"),
		exam(t, "2024-07-26", "13:00-15:00", "ICS 4205: HCI"),
		exam(t, "2024-07-31", "10:30-12:30", "ICS 3103: AT"),
		exam(t, "2024-08-10", "10:30-12:30", "ICS 3111: MP"),
	}

	report := Progress(mustDate(t, "2024-07-24"), exams)

	expected := []int{100, 71, 0, 0}
	if len(report.Exams) != len(expected) {
		t.Fatalf("Expected %d exam entries, but got %d", len(expected), len(report.Exams))
	}
	for i, want := range expected {
		if report.Exams[i].Percent != want {
			t.Errorf("Exam %s: expected %d%%, but got %d%%", report.Exams[i].Course, want, report.Exams[i].Percent)
		}
	}
	if report.Overall != 43 {
		t.Errorf("Expected overall progress 43%%, but got %d%%", report.Overall)
	}
}

func TestProgressCapsAtHundred(t *testing.T) {
	exams := []domain.ExamEvent{exam(t, "2024-07-01", "09:00-11:00", "X 1: Old")}
	report := Progress(mustDate(t, "2024-07-24"), exams)
	if report.Overall != 100 || report.Exams[0].Percent != 100 {
		t.Errorf("Expected progress capped at 100%%, but got %+v", report)
	}
}

func TestProgressNoExams(t *testing.T) {
	report := Progress(time.Now(), nil)
	if report.Overall != 0 || len(report.Exams) != 0 {
		t.Errorf("Expected an empty report, but got %+v", report)
	}
}

func TestDaysUntil(t *testing.T) {
	e := exam(t, "2024-07-26", "13:00-15:00", "ICS 4205: HCI")

	testCases := []struct {
		ref      time.Time
		expected int
	}{
		{mustDate(t, "2024-07-22"), 4},
		{mustDate(t, "2024-07-25").Add(23 * time.Hour), 1},
		{mustDate(t, "2024-07-26"), 0},
		{mustDate(t, "2024-07-28"), -2},
	}

	for _, tc := range testCases {
		if got := DaysUntil(tc.ref, e); got != tc.expected {
			t.Errorf("DaysUntil(%s): expected %d, but got %d", tc.ref.Format(time.RFC3339), tc.expected, got)
		}
	}
}

func TestMonth(t *testing.T) {
	exams := []domain.ExamEvent{
		exam(t, "2024-07-24", "15:30-17:30", "ICS 3106: OR"),
		exam(t, "2024-07-29", "10:30-12:30", "ICS 3103: AT"),
		exam(t, "2024-08-01", "08:00-10:00", "ICS 3101: ADS"),
	}

	view := Month(mustDate(t, "2024-07-10"), exams)

	if view.DaysInMonth != 31 {
		t.Errorf("Expected 31 days in July, but got %d", view.DaysInMonth)
	}
	if view.FirstWeekday != time.Monday {
		t.Errorf("Expected July 2024 to start on Monday, but got %s", view.FirstWeekday)
	}
	if len(view.ExamDays) != 2 || view.ExamDays[24] != "OR" || view.ExamDays[29] != "AT" {
		t.Errorf("Expected exam days 24 and 29, but got %v", view.ExamDays)
	}
}
